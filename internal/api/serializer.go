package api

import (
	"bytes"
	"errors"
	"io"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

var (
	errNotSingleValue = errors.New("body is not a single JSON value")
	errNullBody       = errors.New("body must not be null")
)

// decodeAPI is ConfigStd with exact key matching: "Title" is not "title".
var decodeAPI = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
	CaseSensitive:    true,
}.Froze()

// sonicSerializer is an echo.JSONSerializer backed by sonic.
// Decode errors are returned untouched so handlers can classify them.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

// Deserialize accepts exactly one non-null JSON value, surrounded by
// whitespace at most.
func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	return decodeStrict(body, i)
}

func decodeStrict(body []byte, v any) error {
	if !decodeAPI.Valid(body) {
		return errNotSingleValue
	}
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return errNullBody
	}
	return decodeAPI.Unmarshal(body, v)
}
