package cache

import "encoding/json"

func encode(value interface{}) ([]byte, error) {
	if data, ok := value.([]byte); ok {
		return data, nil
	}
	return json.Marshal(value)
}

func decode(data []byte, dest interface{}) error {
	if byteDest, ok := dest.(*[]byte); ok {
		*byteDest = append([]byte(nil), data...)
		return nil
	}
	return json.Unmarshal(data, dest)
}
