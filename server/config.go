package server

import (
	"github.com/royalcat/polyreduce/geoop"
	"github.com/royalcat/polyreduce/reducer"
)

type Config struct {
	Address string
	// CacheSize is the number of reduction results kept in memory, 0
	// disables the cache.
	CacheSize int
	Reduce    reducer.Config
	Geo       geoop.Config
	Threads   int
}

func ConfigDefault() Config {
	return Config{
		Address:   ":8080",
		CacheSize: 4096,
		Reduce:    reducer.ConfigDefault(),
		Geo:       geoop.ConfigDefault(),
	}
}
