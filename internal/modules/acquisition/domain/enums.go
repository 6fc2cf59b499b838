//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// StopReason is why a run ended
// ENUM(completed,cancelled,exhausted,quota-floor,failed)
type StopReason string
