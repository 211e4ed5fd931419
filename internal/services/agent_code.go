package services

import (
	"fmt"
	"strings"
)

// CodeValidator checks agent codes of the code-based distribution statement:
// a fixed prefix, a numeric suffix without leading zeros, and an exclusion list.
type CodeValidator struct {
	Prefix   string
	excluded map[string]bool
}

func NewCodeValidator(prefix string, excluded []string) CodeValidator {
	v := CodeValidator{Prefix: NormalizeAgentCode(prefix), excluded: make(map[string]bool, len(excluded))}
	for _, c := range excluded {
		v.excluded[NormalizeAgentCode(c)] = true
	}
	return v
}

// Validate returns nil for an acceptable code, else an error wrapping ErrInvalidAgentCode
func (v CodeValidator) Validate(code string) error {
	code = NormalizeAgentCode(code)
	if code == "" {
		return fmt.Errorf("%w: vacío", ErrInvalidAgentCode)
	}
	if v.excluded[code] {
		return fmt.Errorf("%w: %s está excluido", ErrInvalidAgentCode, code)
	}
	suffix, ok := strings.CutPrefix(code, v.Prefix)
	if !ok {
		return fmt.Errorf("%w: %s no inicia con %s", ErrInvalidAgentCode, code, v.Prefix)
	}
	if suffix == "" {
		return fmt.Errorf("%w: %s no tiene número", ErrInvalidAgentCode, code)
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %s tiene un sufijo no numérico", ErrInvalidAgentCode, code)
		}
	}
	if suffix[0] == '0' {
		return fmt.Errorf("%w: %s tiene ceros a la izquierda", ErrInvalidAgentCode, code)
	}
	return nil
}
