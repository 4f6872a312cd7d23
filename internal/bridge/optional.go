package bridge

// The wire format has no presence bit for optional scalar fields, so absence
// travels as the empty string. These two helpers are the only place that
// convention is applied. A present value that formats as "" decodes as absent.
// Repeated fields collapse the same way, see formatAll and parseAll.

func encodeOptional[T any](value *T, format func(T) string) string {
	if value == nil {
		return ""
	}
	return format(*value)
}

func decodeOptional[T any](raw string, parse func(string) (T, error)) (*T, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := parse(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func identity(s string) string { return s }

func parseString(s string) (string, error) { return s, nil }
