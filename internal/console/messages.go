package console

// User-facing messages.
const (
	MsgFieldsRequired   = "All fields (name, description, category, vintage, price, stock) are required."
	MsgInvalidNumbers   = "Price, stock and vintage must be valid numbers."
	MsgNoProductToSave  = "No product is selected for update."
	MsgProductCreated   = "Product created successfully!"
	MsgProductUpdated   = "Product updated successfully!"
	MsgProductDeleted   = "Product deleted successfully!"
	MsgProductsLoaded   = "Wines loaded successfully."
	MsgNoProducts       = "No wines to show."
	MsgUnknownError     = "unknown error"
	MsgUsernameRequired = "Username is required."
	MsgPasswordTooShort = "Password must be at least 8 characters."
	MsgPasswordMismatch = "Passwords do not match."
	MsgRegistered       = "Registration successful! You can now log in."
	MsgAccessDenied     = "Access denied. You do not have permission to view this page."
	MsgDeleteForbidden  = "You do not have permission to delete users."
	MsgUserDeleted      = "User deleted successfully."
	MsgUserNotFound     = "User not found."
	MsgSelfDeletion     = "You cannot delete your own account."
	MsgNoUsers          = "There are no users to show."
	MsgLoginFailed      = "Invalid credentials. Please try again."
	MsgLoginLocked      = "Too many failed login attempts. Try again later."
	MsgLoginUnavailable = "Could not log in right now. Try again later."
	MsgSessionExpired   = "Your session has expired. Please log in again."
	MsgLoggedOut        = "You have been logged out."
)

// Notice codes carried across redirects.
const (
	NoticeCreated = "created"
	NoticeUpdated = "updated"
)

var notices = map[string]string{
	NoticeCreated: MsgProductCreated,
	NoticeUpdated: MsgProductUpdated,
}

// NoticeMessage returns the message for a notice code, or "" for unknown codes.
func NoticeMessage(code string) string {
	return notices[code]
}
