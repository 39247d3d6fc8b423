package ports

// BookGuard provides mutual exclusion between reconciliations of one book.
type BookGuard interface {
	// TryAcquire returns ok=false without blocking when the book is already
	// held. release must be called once when ok is true.
	TryAcquire(book string) (release func(), ok bool, err error)
}
