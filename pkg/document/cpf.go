// Package document validates Brazilian taxpayer documents (CPF) required
// by the carrier for label generation.
package document

import "strings"

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanCPF strips every non-digit character from a CPF
func CleanCPF(cpf string) string {
	return onlyDigits(cpf)
}

// CleanPostalCode strips formatting from a CEP (e.g. "01310-100")
func CleanPostalCode(cep string) string {
	return onlyDigits(cep)
}

// ValidCPF checks the CPF verification digits. It does not consult the
// Receita Federal registry.
func ValidCPF(cpf string) bool {
	cpf = CleanCPF(cpf)
	if len(cpf) != 11 {
		return false
	}

	// All-equal digits pass the checksum but are not valid CPFs
	allEqual := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}

	digit := func(i int) int { return int(cpf[i] - '0') }

	sum := 0
	for i := 0; i < 9; i++ {
		sum += digit(i) * (10 - i)
	}
	d1 := 0
	if rest := sum % 11; rest >= 2 {
		d1 = 11 - rest
	}
	if digit(9) != d1 {
		return false
	}

	sum = 0
	for i := 0; i < 10; i++ {
		sum += digit(i) * (11 - i)
	}
	d2 := 0
	if rest := sum % 11; rest >= 2 {
		d2 = 11 - rest
	}
	return digit(10) == d2
}
