package domain

// Principal is the pre-validated caller identity handed over by the identity
// layer. Token verification happens outside this system.
type Principal struct {
	ID    string
	Roles []string
}
