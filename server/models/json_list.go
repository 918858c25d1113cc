package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
)

// JSONList is a list column persisted as JSON text.
//
// Decoding is lenient: NULL, empty or malformed column values read back as an
// empty list instead of failing the query.
type JSONList[T any] []T

func (list JSONList[T]) Value() (driver.Value, error) {
	if list == nil {
		return "[]", nil
	}

	encoded, err := json.Marshal([]T(list))
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func (list *JSONList[T]) Scan(src interface{}) error {
	var raw []byte

	switch value := src.(type) {
	case []byte:
		raw = value
	case string:
		raw = []byte(value)
	default:
		*list = JSONList[T]{}
		return nil
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		*list = JSONList[T]{}
		return nil
	}

	decoded := []T{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logg.Warnf("malformed JSON list column decoded as empty list: %v", err)
		*list = JSONList[T]{}
		return nil
	}

	if decoded == nil {
		decoded = []T{}
	}
	*list = decoded
	return nil
}

func (list JSONList[T]) MarshalJSON() ([]byte, error) {
	if list == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]T(list))
}

func (JSONList[T]) GormDataType() string {
	return "text"
}
