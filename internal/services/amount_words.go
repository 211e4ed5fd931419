package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountInWords spells a payment amount in Spanish for broker statements.
// 1500.50 -> "MIL QUINIENTOS BALBOAS CON 50/100"
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Round(2)
	negative := amount.IsNegative()
	amount = amount.Abs()

	whole := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(whole)).Shift(2).IntPart()

	words := spell(whole)
	if whole == 1 {
		words = "UN"
	}
	if negative {
		words = "MENOS " + words
	}
	return fmt.Sprintf("%s BALBOAS CON %02d/100", words, cents)
}

func spell(n int64) string {
	switch {
	case n == 0:
		return "CERO"
	case n < 10:
		return units[n]
	case n < 30:
		return specials[n]
	case n < 100:
		if n%10 == 0 {
			return tens[n/10]
		}
		return tens[n/10] + " Y " + units[n%10]
	case n == 100:
		return "CIEN"
	case n < 1000:
		return join(hundreds[n/100], n%100, spell)
	case n < 1_000_000:
		thousands := n / 1000
		prefix := "MIL"
		if thousands > 1 {
			prefix = apocope(spell(thousands)) + " MIL"
		}
		return join(prefix, n%1000, spell)
	case n < 1_000_000_000_000:
		millions := n / 1_000_000
		prefix := "UN MILLÓN"
		if millions > 1 {
			prefix = apocope(spell(millions)) + " MILLONES"
		}
		return join(prefix, n%1_000_000, spell)
	}
	return strings.TrimSpace(fmt.Sprint(n))
}

func join(prefix string, rest int64, f func(int64) string) string {
	if rest == 0 {
		return prefix
	}
	return prefix + " " + f(rest)
}

// apocope shortens a trailing UNO before MIL and MILLONES ("VEINTIÚN MIL", "TREINTA Y UN MIL")
func apocope(s string) string {
	switch {
	case strings.HasSuffix(s, "VEINTIUNO"):
		return strings.TrimSuffix(s, "VEINTIUNO") + "VEINTIÚN"
	case strings.HasSuffix(s, "UNO"):
		return strings.TrimSuffix(s, "UNO") + "UN"
	}
	return s
}

var units = []string{
	"", "UNO", "DOS", "TRES", "CUATRO", "CINCO", "SEIS", "SIETE", "OCHO", "NUEVE",
}

var specials = map[int64]string{
	10: "DIEZ", 11: "ONCE", 12: "DOCE", 13: "TRECE", 14: "CATORCE", 15: "QUINCE",
	16: "DIECISÉIS", 17: "DIECISIETE", 18: "DIECIOCHO", 19: "DIECINUEVE",
	20: "VEINTE", 21: "VEINTIUNO", 22: "VEINTIDÓS", 23: "VEINTITRÉS", 24: "VEINTICUATRO",
	25: "VEINTICINCO", 26: "VEINTISÉIS", 27: "VEINTISIETE", 28: "VEINTIOCHO", 29: "VEINTINUEVE",
}

var tens = []string{
	"", "", "VEINTE", "TREINTA", "CUARENTA", "CINCUENTA", "SESENTA", "SETENTA", "OCHENTA", "NOVENTA",
}

var hundreds = []string{
	"", "CIENTO", "DOSCIENTOS", "TRESCIENTOS", "CUATROCIENTOS", "QUINIENTOS", "SEISCIENTOS", "SETECIENTOS", "OCHOCIENTOS", "NOVECIENTOS",
}
