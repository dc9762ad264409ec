package models

// CloneStrings copies a string slice, keeping nil as nil.
func CloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ContainsString reports whether list contains value.
func ContainsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// AddString appends value when it is not already present.
func AddString(list []string, value string) []string {
	if ContainsString(list, value) {
		return list
	}
	return append(CloneStrings(list), value)
}

// RemoveString drops every occurrence of value.
func RemoveString(list []string, value string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != value {
			out = append(out, item)
		}
	}
	return out
}
