package log

// Closure defers building an expensive message until it is formatted.
type Closure func() string

func (c Closure) String() string {
	return c()
}

func InitLogClosure(c func() string) Closure {
	return Closure(c)
}
