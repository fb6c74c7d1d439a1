package model

import "fmt"

// NumTimeframes is the fixed number of trained timeframes per coin.
const NumTimeframes = 7

// Signal is an immutable snapshot of one coin's trading conviction at one instant.
type Signal struct {
	Coin              string
	LongLevel         int
	ShortLevel        int
	LongBounds        []float64 // length 0 or NumTimeframes, timeframe order
	ShortBounds       []float64 // length 0 or NumTimeframes, timeframe order
	LongProfitMargin  float64
	ShortProfitMargin float64
	Timestamp         float64
}

// IsLongEntry reports whether this signal alone would justify a long entry
// at the given trade-start level (short_level must be zero).
func (s Signal) IsLongEntry(tradeStartLevel int) bool {
	return s.LongLevel >= tradeStartLevel && s.ShortLevel == 0
}

func (s Signal) IsNeutral() bool { return s.LongLevel == 0 && s.ShortLevel == 0 }

// Validate checks level ranges and bounds-slice length invariants.
func (s Signal) Validate() error {
	if s.LongLevel < 0 || s.LongLevel > NumTimeframes {
		return fmt.Errorf("signal %s: long level %d out of range", s.Coin, s.LongLevel)
	}
	if s.ShortLevel < 0 || s.ShortLevel > NumTimeframes {
		return fmt.Errorf("signal %s: short level %d out of range", s.Coin, s.ShortLevel)
	}
	if len(s.LongBounds) != 0 && len(s.LongBounds) != NumTimeframes {
		return fmt.Errorf("signal %s: long bounds length %d, want 0 or %d", s.Coin, len(s.LongBounds), NumTimeframes)
	}
	if len(s.ShortBounds) != 0 && len(s.ShortBounds) != NumTimeframes {
		return fmt.Errorf("signal %s: short bounds length %d, want 0 or %d", s.Coin, len(s.ShortBounds), NumTimeframes)
	}
	return nil
}
