//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// Method is the detector that decided a classification
// ENUM(explicit-mention,local-code,province-mention,cultural-pattern,exclusion,insufficient-evidence)
type Method string
