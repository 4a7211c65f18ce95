package sri

import (
	"fmt"
	"strconv"
)

var cedulaCoefficients = [9]int{2, 1, 2, 1, 2, 1, 2, 1, 2}

// ValidateCedula valida la cédula ecuatoriana (10 dígitos, provincia 01-24 o 30, módulo 10).
func ValidateCedula(id string) error {
	if len(id) != 10 || !allDigits(id) {
		return fmt.Errorf("sri: la cédula debe tener 10 dígitos")
	}
	if err := validateProvince(id); err != nil {
		return err
	}
	if id[2] > '5' {
		return fmt.Errorf("sri: tercer dígito de cédula inválido: %c", id[2])
	}
	var sum int
	for i, c := range cedulaCoefficients {
		p := int(id[i]-'0') * c
		if p >= 10 {
			p -= 9
		}
		sum += p
	}
	check := (10 - sum%10) % 10
	if int(id[9]-'0') != check {
		return fmt.Errorf("sri: dígito verificador de cédula inválido: esperado %d", check)
	}
	return nil
}

var (
	privateRUCCoefficients = [9]int{4, 3, 2, 7, 6, 5, 4, 3, 2}
	publicRUCCoefficients  = [8]int{3, 2, 7, 6, 5, 4, 3, 2}
)

// ValidateRUC valida el RUC según el tipo de contribuyente indicado por el tercer dígito:
// 0-5 persona natural (cédula + establecimiento), 6 sector público, 9 sociedad privada.
func ValidateRUC(ruc string) error {
	if len(ruc) != 13 || !allDigits(ruc) {
		return fmt.Errorf("sri: el RUC debe tener 13 dígitos")
	}
	if err := validateProvince(ruc); err != nil {
		return err
	}
	switch {
	case ruc[2] < '6':
		if ruc[10:] == "000" {
			return fmt.Errorf("sri: establecimiento de RUC inválido")
		}
		return ValidateCedula(ruc[:10])
	case ruc[2] == '6':
		if ruc[9:] == "0000" {
			return fmt.Errorf("sri: establecimiento de RUC inválido")
		}
		return checkMod11(ruc, publicRUCCoefficients[:], 8)
	case ruc[2] == '9':
		if ruc[10:] == "000" {
			return fmt.Errorf("sri: establecimiento de RUC inválido")
		}
		return checkMod11(ruc, privateRUCCoefficients[:], 9)
	}
	return fmt.Errorf("sri: tercer dígito de RUC inválido: %c", ruc[2])
}

// ValidateIdentification valida según el tipo de identificación del comprador.
func ValidateIdentification(idType, id string) error {
	switch idType {
	case IdentificationTypeCedula:
		return ValidateCedula(id)
	case IdentificationTypeRUC:
		return ValidateRUC(id)
	case IdentificationTypeFinalConsumer:
		if id != "9999999999999" {
			return fmt.Errorf("sri: consumidor final debe usar 9999999999999")
		}
		return nil
	case IdentificationTypePassport, IdentificationTypeForeign:
		if id == "" || len(id) > 20 {
			return fmt.Errorf("sri: identificación del exterior inválida")
		}
		return nil
	}
	return fmt.Errorf("sri: tipo de identificación desconocido %q", idType)
}

func checkMod11(id string, coefficients []int, checkPos int) error {
	var sum int
	for i, c := range coefficients {
		sum += int(id[i]-'0') * c
	}
	rem := sum % 11
	check := 0
	if rem != 0 {
		check = 11 - rem
	}
	if check == 10 || int(id[checkPos]-'0') != check {
		return fmt.Errorf("sri: dígito verificador de RUC inválido")
	}
	return nil
}

func validateProvince(id string) error {
	prov, _ := strconv.Atoi(id[:2])
	if (prov < 1 || prov > 24) && prov != 30 {
		return fmt.Errorf("sri: código de provincia inválido: %s", id[:2])
	}
	return nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
