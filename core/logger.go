package core

// Logger logs messages and reports errors.
// expected args: error, map[string]interface{} (extras), roster.Person (the affected person)
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
