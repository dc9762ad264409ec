package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// dsnInfo is the password-free description of a database DSN.
type dsnInfo struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

func (i dsnInfo) String() string {
	if i.Type == "sqlite" {
		return "type=sqlite path=" + i.Path
	}
	return fmt.Sprintf("type=%s host=%s port=%d user=%s db=%s sslmode=%s password_set=%t",
		i.Type, i.Host, i.Port, i.User, i.Name, i.SSLMode, i.PasswordSet)
}

// describeDSN parses dsn for logging without exposing credentials.
func describeDSN(dsn string) (dsnInfo, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return dsnInfo{}, fmt.Errorf("empty dsn")
	}

	if strings.HasPrefix(strings.ToLower(trimmed), "file:") {
		pathPart := trimmed[len("file:"):]
		pathPart, _, _ = strings.Cut(pathPart, "?")
		return dsnInfo{Type: "sqlite", Path: strings.TrimSpace(pathPart)}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil {
		return dsnInfo{}, fmt.Errorf("parse dsn: %w", errParse)
	}
	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "postgres", "postgresql":
	default:
		return dsnInfo{}, fmt.Errorf("unsupported dsn scheme")
	}

	port := 5432
	if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
		parsedPort, errPort := strconv.Atoi(rawPort)
		if errPort != nil {
			return dsnInfo{}, fmt.Errorf("parse port: %w", errPort)
		}
		port = parsedPort
	}
	info := dsnInfo{
		Type:    "postgres",
		Host:    strings.TrimSpace(u.Hostname()),
		Port:    port,
		Name:    strings.TrimSpace(strings.TrimPrefix(u.Path, "/")),
		SSLMode: strings.TrimSpace(u.Query().Get("sslmode")),
	}
	if info.SSLMode == "" {
		info.SSLMode = "disable"
	}
	if u.User != nil {
		info.User = strings.TrimSpace(u.User.Username())
		_, info.PasswordSet = u.User.Password()
	}
	return info, nil
}
