package geomodel

import (
	"github.com/paulmach/orb"
	"github.com/royalcat/polyreduce/reducer"
)

//go:generate go tool easyjson -all label.go

// Label is the outcome of reducing one polygon.
type Label struct {
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
	Rounds      int     `json:"rounds"`
	Area        float64 `json:"area"`
	Termination string  `json:"termination"`
}

type LabelList []Label

func NewLabel(res reducer.Result) Label {
	return Label{
		Lon:         res.Point.Lon(),
		Lat:         res.Point.Lat(),
		Rounds:      res.Rounds,
		Area:        res.Area,
		Termination: res.Termination.String(),
	}
}

func (l Label) Point() orb.Point {
	return orb.Point{l.Lon, l.Lat}
}
