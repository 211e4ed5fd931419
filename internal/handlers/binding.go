package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// BindNestedOrFlat attempts to bind the request body to obj.
// It first checks if the body contains a nested object with the given key (e.g. {"discount": {...}}).
// If so, it binds that nested object to obj.
// If not, or if the key is missing, it attempts to bind the entire body to obj (e.g. {...}).
func BindNestedOrFlat(c *gin.Context, key string, obj interface{}) error {
	var bodyBytes []byte
	if c.Request.Body != nil {
		bodyBytes, _ = io.ReadAll(c.Request.Body)
	}
	// Restore body for future binding or subsequent reads
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	var nestedMap map[string]json.RawMessage
	if err := json.Unmarshal(bodyBytes, &nestedMap); err == nil {
		if val, ok := nestedMap[key]; ok {
			return json.Unmarshal(val, obj)
		}
	}

	return json.Unmarshal(bodyBytes, obj)
}

// bindAndValidate binds the body (nested under key or flat) and runs the struct's validate tags
func bindAndValidate(c *gin.Context, key string, obj interface{}) error {
	if err := BindNestedOrFlat(c, key, obj); err != nil {
		return fmt.Errorf("cuerpo de la solicitud inválido: %v", err)
	}
	if err := validate.Struct(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, validationMessage(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " es requerido"
	case "required_without":
		return fe.Field() + " es requerido si no se envía " + fe.Param()
	case "required_with":
		return fe.Field() + " es requerido junto con " + fe.Param()
	case "gt", "gte":
		return fmt.Sprintf("%s debe ser mayor que %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s admite como máximo %s caracteres", fe.Field(), fe.Param())
	case "datetime":
		return fe.Field() + " debe tener el formato AAAA-MM-DD"
	default:
		return fe.Field() + " es inválido"
	}
}

// paramID reads a positive integer path parameter
func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s inválido", name)
	}
	return uint(id), nil
}

// parseDate reads an optional AAAA-MM-DD value; empty returns nil
func parseDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("fecha inválida %q, use AAAA-MM-DD", s)
	}
	return &t, nil
}
