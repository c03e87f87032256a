// Package track merges decoded SSR records into per-aircraft state.
package track

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"airsuck/internal/cpr"
	"airsuck/internal/ssr"
)

const (
	DefaultCPRExpire = 10 * time.Second
	DefaultStateTTL  = 5 * time.Minute
)

// CPRResult describes what happened to a position message.
type CPRResult string

const (
	CPRNone         CPRResult = ""
	CPRPending      CPRResult = "pending"
	CPRGlobal       CPRResult = "global"
	CPRLocal        CPRResult = "local"
	CPRZoneMismatch CPRResult = "zone_mismatch"
	CPROutOfBounds  CPRResult = "out_of_bounds"
)

// Position is a reference position.
type Position struct {
	Lat float64
	Lon float64
}

// Config holds the engine settings.
type Config struct {
	// CPRExpire is the maximum age of either frame of an even/odd pair.
	CPRExpire time.Duration
	// StateTTL is how long an aircraft is kept after its last reply.
	StateTTL time.Duration
	// Receiver enables range, bearing and local CPR decoding.
	Receiver *Position
}

// Update is the result of merging one record.
type Update struct {
	State State
	CPR   CPRResult
}

// Engine keeps aircraft state. It is safe for concurrent use.
type Engine struct {
	cfg    Config
	logger *logrus.Logger

	mu     sync.Mutex
	states map[string]*State
}

// NewEngine creates an engine with cfg, filling zero durations with
// defaults.
func NewEngine(cfg Config, logger *logrus.Logger) *Engine {
	if cfg.CPRExpire <= 0 {
		cfg.CPRExpire = DefaultCPRExpire
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	return &Engine{
		cfg:    cfg,
		logger: logger,
		states: make(map[string]*State),
	}
}

// Update merges rec, received from src at ts. ok is false when the record
// cannot be attributed to an aircraft: a DF17/DF18 with bad parity, an
// address/parity reply from an aircraft not seen in a squitter yet, or a
// plain Mode A/C reply.
func (e *Engine) Update(rec ssr.Record, src string, mlat bool, ts time.Time) (Update, bool) {
	addr, icao, ok := e.attribute(rec)
	if !ok {
		return Update{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st, known := e.states[addr]
	if !known {
		if !opensState(rec) {
			return Update{}, false
		}
		st = &State{Addr: addr, ICAO: icao, FirstSeen: ts}
		e.states[addr] = st
	}
	st.Src = src
	st.MLAT = mlat
	st.LastSeen = ts

	var result CPRResult
	if rec.AC != nil {
		e.mergeSquawk(st, rec.AC.Squawk)
		if rec.AC.CAlt != nil {
			st.Alt = rec.AC.CAlt
		}
	} else {
		result = e.mergeModeS(st, rec.S, ts)
	}

	e.updateRelative(st)
	return Update{State: *st, CPR: result}, true
}

// attribute finds the state key of rec.
func (e *Engine) attribute(rec ssr.Record) (string, uint32, bool) {
	switch rec.Mode {
	case ssr.ModeAC:
		if !rec.AC.Emergency {
			return "", 0, false
		}
		return "A-" + rec.AC.ASquawk, 0, true
	case ssr.ModeS:
	default:
		return "", 0, false
	}

	switch p := rec.S.Payload.(type) {
	case ssr.ExtendedSquitter:
		if !rec.S.CRCMatch() || p.ICAO == nil {
			return "", 0, false
		}
		return p.ICAO.Hex, p.ICAO.Int, true
	case ssr.AllCallReply:
		// the low 7 parity bits may carry an interrogator id
		if (rec.S.FrameCRC^rec.S.CmpCRC)&0xffff80 != 0 {
			return "", 0, false
		}
		return p.ICAO.Hex, p.ICAO.Int, true
	}

	aa, ok := rec.S.ParityAddress()
	if !ok {
		return "", 0, false
	}
	return fmt.Sprintf("%06x", aa), aa, true
}

// opensState reports whether rec may create a new state. Parity addresses
// are only trusted for aircraft already known.
func opensState(rec ssr.Record) bool {
	if rec.AC != nil {
		return true
	}
	switch rec.S.Payload.(type) {
	case ssr.ExtendedSquitter, ssr.AllCallReply:
		return true
	}
	return false
}

func (e *Engine) mergeSquawk(st *State, sq ssr.Squawk) {
	st.Squawk = sq.ASquawk
	if sq.Emergency {
		st.Emergency = true
		if st.EmergencyInfo == "" {
			st.EmergencyInfo = sq.ASquawkEmergency
		}
	}
}

func (e *Engine) mergeModeS(st *State, s *ssr.SReply, ts time.Time) CPRResult {
	switch p := s.Payload.(type) {
	case ssr.ShortACAS:
		setAlt(st, p.Alt)
	case ssr.AltitudeReply:
		setAlt(st, p.Alt)
	case ssr.LongACAS:
		setAlt(st, p.Alt)
	case ssr.IdentityReply:
		e.mergeSquawk(st, p.Squawk)
	case ssr.CommBAltitudeReply:
		setAlt(st, p.Alt)
		setCallsign(st, p.IDInfo)
	case ssr.CommBIdentityReply:
		e.mergeSquawk(st, p.Squawk)
		setCallsign(st, p.IDInfo)
	case ssr.ExtendedSquitter:
		return e.mergeSquitter(st, p, ts)
	}
	return CPRNone
}

func (e *Engine) mergeSquitter(st *State, es ssr.ExtendedSquitter, ts time.Time) CPRResult {
	switch m := es.Message.(type) {
	case ssr.Identification:
		setCallsign(st, m.IDInfo)
		st.Category = m.Category
	case ssr.AirbornePosition:
		setAlt(st, m.Alt)
		if m.Emergency {
			st.Emergency = true
		}
		return e.mergeCPR(st, m.RawCPR, false, ts)
	case ssr.SurfacePosition:
		if m.Heading != nil {
			st.Heading = m.Heading
			st.HeadingMeta = HeadingADSB
		}
		return e.mergeCPR(st, m.RawCPR, true, ts)
	case ssr.AirborneVelocity:
		if m.GndSpeed != nil {
			st.Velo = m.GndSpeed
			st.VeloType = "GS"
		} else if m.Airspeed != nil {
			v := float64(*m.Airspeed)
			st.Velo = &v
			st.VeloType = m.AirspeedRef
		}
		if m.Heading != nil {
			st.Heading = m.Heading
			st.HeadingMeta = HeadingADSB
		}
		if m.VertRate != nil {
			st.VertRate = m.VertRate
		}
		st.Supersonic = m.Supersonic
	case ssr.AircraftStatus:
		if m.Squawk != nil {
			e.mergeSquawk(st, *m.Squawk)
		}
		if m.ES != nil && *m.ES > 0 {
			st.Emergency = true
			st.EmergencyInfo = ssr.EmergencyStateName(*m.ES)
		}
	case ssr.TestMessage:
		if m.Squawk != nil {
			e.mergeSquawk(st, *m.Squawk)
		}
	}
	return CPRNone
}

// mergeCPR stores the frame and resolves a position from a fresh even/odd
// pair, falling back to a local decode against the last known position or
// the receiver. Surface positions need the receiver for both.
func (e *Engine) mergeCPR(st *State, raw ssr.RawCPR, surface bool, ts time.Time) CPRResult {
	frame := &cprFrame{lat: raw.RawLat, lon: raw.RawLon, surface: surface, at: ts}
	if raw.EvenOdd == cpr.Odd {
		st.odd = frame
	} else {
		st.even = frame
	}

	result := CPRPending
	if e.freshPair(st, surface, ts) {
		pair := cpr.Pair{
			Even:       cpr.Position{Lat: st.even.lat, Lon: st.even.lon},
			Odd:        cpr.Position{Lat: st.odd.lat, Lon: st.odd.lon},
			LastFormat: raw.EvenOdd,
			Surface:    surface,
		}
		var lat, lon float64
		var err error
		switch {
		case !surface:
			lat, lon, err = cpr.ResolveGlobal(pair)
		case e.cfg.Receiver != nil:
			lat, lon, err = cpr.ResolveSurface(pair, e.cfg.Receiver.Lat, e.cfg.Receiver.Lon)
		default:
			// a surface pair alone only resolves to a 90 degree quadrant
			return CPRPending
		}
		if err == nil {
			e.setPosition(st, lat, lon, LocationCPRGlobal)
			return CPRGlobal
		}
		result = cprFailure(err)
		e.logger.WithError(err).WithField("addr", st.Addr).Debug("Global CPR decode failed")
	}

	ref, ok := e.reference(st, surface)
	if !ok {
		return result
	}
	lat, lon, err := cpr.ResolveLocal(raw.RawLat, raw.RawLon, raw.EvenOdd == cpr.Odd, surface, ref.Lat, ref.Lon)
	if err != nil {
		return cprFailure(err)
	}
	e.setPosition(st, lat, lon, LocationCPRLocal)
	return CPRLocal
}

func (e *Engine) freshPair(st *State, surface bool, ts time.Time) bool {
	if st.even == nil || st.odd == nil {
		return false
	}
	if st.even.surface != surface || st.odd.surface != surface {
		return false
	}
	return ts.Sub(st.even.at) <= e.cfg.CPRExpire && ts.Sub(st.odd.at) <= e.cfg.CPRExpire
}

// reference returns the position used for local decoding. Surface
// positions need a nearby reference and only use the receiver.
func (e *Engine) reference(st *State, surface bool) (Position, bool) {
	if !surface && st.HasPosition() && st.LocationMeta == LocationCPRGlobal {
		return Position{Lat: *st.Lat, Lon: *st.Lon}, true
	}
	if e.cfg.Receiver != nil {
		return *e.cfg.Receiver, true
	}
	return Position{}, false
}

func cprFailure(err error) CPRResult {
	if errors.Is(err, cpr.ErrZoneMismatch) {
		return CPRZoneMismatch
	}
	return CPROutOfBounds
}

func (e *Engine) setPosition(st *State, lat, lon float64, meta string) {
	if st.HasPosition() && st.HeadingMeta != HeadingADSB && (*st.Lat != lat || *st.Lon != lon) {
		h := Bearing(*st.Lat, *st.Lon, lat, lon)
		st.Heading = &h
		st.HeadingMeta = HeadingGPSDerived
	}
	st.Lat = &lat
	st.Lon = &lon
	st.LocationMeta = meta
}

func (e *Engine) updateRelative(st *State) {
	if e.cfg.Receiver == nil || !st.HasPosition() {
		return
	}
	r := Haversine(e.cfg.Receiver.Lat, e.cfg.Receiver.Lon, *st.Lat, *st.Lon)
	b := Bearing(e.cfg.Receiver.Lat, e.cfg.Receiver.Lon, *st.Lat, *st.Lon)
	st.RangeKm = &r
	st.Bearing = &b
	st.Cardinal = Cardinal(b)
}

func setAlt(st *State, alt *int) {
	if alt != nil {
		st.Alt = alt
	}
}

func setCallsign(st *State, id string) {
	if id != "" {
		st.Callsign = id
	}
}

// Get returns a copy of the state for addr.
func (e *Engine) Get(addr string) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[addr]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// Len returns the number of tracked aircraft.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.states)
}

// Expire drops states not updated within StateTTL of now and returns how
// many were removed.
func (e *Engine) Expire(now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for addr, st := range e.states {
		if now.Sub(st.LastSeen) > e.cfg.StateTTL {
			delete(e.states, addr)
			removed++
		}
	}
	return removed
}

// Run expires states every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := e.Expire(now); n > 0 {
				e.logger.WithFields(logrus.Fields{
					"expired": n,
					"tracked": e.Len(),
				}).Debug("Expired aircraft state")
			}
		}
	}
}
