// Package indicators provides streaming, fixed-period indicators. They are
// pure functions of the value sequence fed to them and are consumed by
// strategies, never by the matching core.
package indicators

import "fmt"

// SimpleMA is a streaming simple moving average.
type SimpleMA struct {
	period int
	window []float64
}

func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("MA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int {
	return m.period
}

func (m *SimpleMA) Reset() {
	m.window = m.window[:0]
}

// Update consumes the next value. The returned value is meaningful only once
// the warmup window is full, signalled by ok.
func (m *SimpleMA) Update(v float64) (float64, bool) {
	m.window = append(m.window, v)
	if len(m.window) > m.period {
		m.window = m.window[1:]
	}
	if !m.Ready() {
		return 0, false
	}
	return m.Value(), true
}

func (m *SimpleMA) Ready() bool {
	return len(m.window) >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	sum := 0.0
	for _, v := range m.window {
		sum += v
	}
	return sum / float64(len(m.window))
}

// EMA is a streaming exponential moving average, seeded with the SMA of the
// first period values.
type EMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *EMA) Warmup() int {
	return e.period
}

func (e *EMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *EMA) Update(v float64) (float64, bool) {
	if e.count < e.period {
		e.warmupSum += v
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
	} else {
		e.ema = (v-e.ema)*e.multiplier + e.ema
	}
	if !e.Ready() {
		return 0, false
	}
	return e.ema, true
}

func (e *EMA) Ready() bool {
	return e.count >= e.period
}

func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}
