package middleware

import (
	"path/filepath"
	"strings"
	"unicode"
)

// MaxParamLength limita parâmetros de rota como nomes de projeto
const MaxParamLength = 255

// SanitizeParam limpa um parâmetro de rota:
// remove bytes nulos e caracteres de controle, apara espaços e trunca
func SanitizeParam(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = removeControlChars(input)
	input = strings.TrimSpace(input)

	if len(input) > MaxParamLength {
		input = input[:MaxParamLength]
	}
	return input
}

// SanitizeFilename remove componentes de caminho e caracteres perigosos de um nome de arquivo
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "\x00", "")
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, "/", "")
	filename = strings.ReplaceAll(filename, "\\", "")
	filename = strings.ReplaceAll(filename, "\"", "")
	filename = removeControlChars(filename)
	filename = strings.TrimSpace(filename)

	if filename == "" || filename == "." {
		return "unnamed_file"
	}
	return filename
}

func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
