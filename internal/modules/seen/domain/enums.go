//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// Outcome is how processing of a channel ended
// ENUM(accepted,rejected)
type Outcome string
