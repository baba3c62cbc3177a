package labeler

import (
	"runtime"

	"github.com/royalcat/polyreduce/geoop"
	"github.com/royalcat/polyreduce/reducer"
)

const (
	PropRounds      = "label:rounds"
	PropTermination = "label:termination"
	PropPart        = "label:part"
)

type Config struct {
	Threads int
	Reduce  reducer.Config
	Geo     geoop.Config
	// Annotate adds the round count and termination reason to every label.
	Annotate bool
	// SplitMulti labels every part of a MultiPolygon instead of skipping it.
	SplitMulti bool
	Progress   bool
}

func ConfigDefault() Config {
	return Config{
		Threads: runtime.GOMAXPROCS(-1),
		Reduce:  reducer.ConfigDefault(),
		Geo:     geoop.ConfigDefault(),
	}
}
