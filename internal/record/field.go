package record

import "strconv"

// Field resolves a canonical field name (application, database, user, pid,
// host) to its string value on the record. ok is false when the field is
// unknown or absent (e.g. on a TEXT record, where structured fields are
// never populated).
func (r LogRecord) Field(name string) (value string, ok bool) {
	switch name {
	case "application":
		return r.Application, r.Application != ""
	case "database":
		return r.Database, r.Database != ""
	case "user":
		return r.User, r.User != ""
	case "pid":
		if r.HasPID {
			return strconv.Itoa(r.PID), true
		}
		return "", false
	case "backend":
		return r.BackendType, r.BackendType != ""
	case "host":
		return r.RemoteHost, r.RemoteHost != ""
	default:
		return "", false
	}
}
