package enum

// CartMode selects what a cart mutation does with its line argument.
type CartMode string

const (
	// CartModeAdd merges the candidate line into the cart by identity.
	CartModeAdd CartMode = "add"
	// CartModeEmpty discards the whole cart; the line argument is ignored.
	CartModeEmpty CartMode = "empty"
)
