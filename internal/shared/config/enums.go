//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package config

// AppEnv represents the application environment
// ENUM(local,production,development,testing)
type AppEnv string

// StorageDriver selects where seen records and accepted channels live
// ENUM(file,sqlite,postgres)
type StorageDriver string

// CacheBackend selects the durable tier of the response cache
// ENUM(file,redis)
type CacheBackend string
