package models

// Product represents a wine in the catalog as exposed by the backend.
type Product struct {
	ID          int     `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Vintage     int     `json:"vintage"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}
