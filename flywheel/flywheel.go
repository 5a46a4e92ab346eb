// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flywheel

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/emer/cortex/cortex"
	"github.com/emer/cortex/layermap"
	"github.com/emer/cortex/thalamus"
	"github.com/emer/emergent/v2/timer"
	"github.com/emer/etable/v2/etable"
	"github.com/voodooEntity/archivist"
)

// Params are the parameters of a flywheel
type Params struct {

	// ticks between AreaInfo responses, 0 for none
	InfoInterval int `def:"100"`

	// ticks between snapshots to the Saver, 0 for none
	SaveInterval int `def:"0"`

	// area of the motor tract; empty for no Motor responses
	MotorArea string

	// tags of the motor tract; zero means FFOut
	MotorTags layermap.LayerTags

	// rows kept in the log before it starts over
	MaxLogRows int `def:"10000" min:"1"`
}

// Defaults sets default values
func (fp *Params) Defaults() {
	fp.InfoInterval = 100
	fp.MaxLogRows = 10000
}

// Update fills in zero values that must not be zero
func (fp *Params) Update() {
	if fp.MaxLogRows < 1 {
		fp.MaxLogRows = 10000
	}
	if fp.MotorArea != "" && fp.MotorTags.Bits == 0 {
		fp.MotorTags = layermap.FFOut
	}
}

// Saver stores a snapshot of every area, as store.SnapshotStore does.
type Saver interface {
	SaveCortex(ctx context.Context, cx *cortex.Cortex) (map[string]string, error)
}

// CmdBuffer is the capacity of the command channel.
const CmdBuffer = 16

type subscriber struct {
	ch   chan Response
	done chan struct{}
}

// Flywheel runs a cortex under a command channel. Only Run touches the
// cortex; Send and the subscription methods are safe from any goroutine.
type Flywheel struct {
	Cortex *cortex.Cortex
	Params Params

	// optional periodic snapshot target
	Saver Saver

	// AreaInfo statistics, one row per data layer
	Log *etable.Table

	// optional tab separated copy of the log rows
	LogWriter io.Writer

	// time spent in Cortex.Cycle
	TickTime timer.Time

	cmds chan Command

	subMu sync.Mutex
	subs  []*subscriber

	start     *time.Time
	remaining uint32
	iter      uint32

	motorAddr layermap.LayerAddr
	motor     []byte
	delivered map[*thalamus.Sampler]uint64
	logHdr    bool
}

// New returns a flywheel for cx with default params.
func New(cx *cortex.Cortex) *Flywheel {
	fw := &Flywheel{Cortex: cx}
	fw.Params.Defaults()
	fw.Log = &etable.Table{}
	fw.ConfigLog(fw.Log)
	fw.cmds = make(chan Command, CmdBuffer)
	fw.delivered = make(map[*thalamus.Sampler]uint64)
	return fw
}

// Send queues a command, waiting while the channel is full.
func (fw *Flywheel) Send(ctx context.Context, cmd Command) error {
	select {
	case fw.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExitWhenIdle passes every response on rc to fn until rc is closed, and
// sends Exit once, on the first idle Status. Returns the error of that send.
func (fw *Flywheel) ExitWhenIdle(ctx context.Context, rc <-chan Response, fn func(rs Response)) error {
	var err error
	exiting := false
	for rs := range rc {
		fn(rs)
		if rs.Type == Status && rs.Status != nil && !rs.Status.Running() && !exiting {
			exiting = true
			err = fw.Send(ctx, Command{Cmd: Exit})
		}
	}
	return err
}

// Subscribe returns a channel receiving every response broadcast from now
// on. Broadcasts wait for each subscriber, so a subscriber must keep
// reading or Unsubscribe. The channel is closed when Run returns.
func (fw *Flywheel) Subscribe(buf int) <-chan Response {
	sb := &subscriber{ch: make(chan Response, buf), done: make(chan struct{})}
	fw.subMu.Lock()
	fw.subs = append(fw.subs, sb)
	fw.subMu.Unlock()
	return sb.ch
}

// Unsubscribe stops broadcasts to ch. The channel is not closed.
func (fw *Flywheel) Unsubscribe(ch <-chan Response) {
	fw.subMu.Lock()
	defer fw.subMu.Unlock()
	for i, sb := range fw.subs {
		if sb.ch == ch {
			close(sb.done)
			fw.subs = append(fw.subs[:i], fw.subs[i+1:]...)
			return
		}
	}
}

func (fw *Flywheel) broadcast(ctx context.Context, rs Response) error {
	rs.Tick = fw.Cortex.Tick
	fw.subMu.Lock()
	subs := append([]*subscriber(nil), fw.subs...)
	fw.subMu.Unlock()
	for _, sb := range subs {
		select {
		case sb.ch <- rs:
		case <-sb.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (fw *Flywheel) closeSubs() {
	fw.subMu.Lock()
	defer fw.subMu.Unlock()
	for _, sb := range fw.subs {
		close(sb.ch)
	}
	fw.subs = nil
}

func (fw *Flywheel) status() StatusInfo {
	return StatusInfo{CurStartTime: fw.start, Remaining: fw.remaining}
}

func (fw *Flywheel) sendStatus(ctx context.Context) error {
	st := fw.status()
	return fw.broadcast(ctx, Response{Type: Status, Status: &st})
}

// config resolves the motor tract.
func (fw *Flywheel) config() error {
	fw.Params.Update()
	if fw.Params.MotorArea == "" {
		return nil
	}
	th := fw.Cortex.Thal
	addr, err := th.Addr(fw.Params.MotorArea, fw.Params.MotorTags)
	if err != nil {
		return err
	}
	tr, err := th.Tract(addr)
	if err != nil {
		return err
	}
	fw.motorAddr = addr
	fw.motor = make([]byte, tr.Buf.Len())
	return nil
}

// Run processes commands until Exit or ctx is done. A cortex error ends
// the loop and is returned; recoverable errors are sent in responses.
func (fw *Flywheel) Run(ctx context.Context) error {
	defer fw.closeSubs()
	if err := fw.config(); err != nil {
		return err
	}
	archivist.Info("flywheel started", fmt.Sprintf("areas %d", len(fw.Cortex.Areas)))
	for {
		var cmd Command
		if fw.remaining == 0 {
			select {
			case cmd = <-fw.cmds:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else {
			select {
			case cmd = <-fw.cmds:
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		switch cmd.Cmd {
		case Iterate:
			if cmd.N == 0 {
				break
			}
			if fw.start == nil {
				now := time.Now()
				fw.start = &now
				fw.iter = 0
			}
			fw.remaining += cmd.N
			archivist.Debug("flywheel iterate", fmt.Sprintf("%d ticks, %d remaining", cmd.N, fw.remaining))
		case Stop:
			if fw.start != nil {
				archivist.Info("flywheel stopped", fmt.Sprintf("after %d ticks, %d remaining", fw.iter, fw.remaining))
			}
			fw.idle()
			if err := fw.sendStatus(ctx); err != nil {
				return err
			}
		case Exit:
			fw.idle()
			if err := fw.sendStatus(ctx); err != nil {
				return err
			}
			if err := fw.broadcast(ctx, Response{Type: Exiting}); err != nil {
				return err
			}
			archivist.Info("flywheel exiting", fmt.Sprintf("tick %d", fw.Cortex.Tick))
			return fw.Cortex.Finish()
		}
		if fw.remaining > 0 {
			if err := fw.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (fw *Flywheel) idle() {
	fw.start = nil
	fw.remaining = 0
}

// tick runs one cortex cycle and broadcasts its responses, Status last.
func (fw *Flywheel) tick(ctx context.Context) error {
	fw.TickTime.Start()
	err := fw.Cortex.Cycle(ctx)
	fw.TickTime.Stop()
	if err != nil {
		archivist.Error("flywheel tick failed", err.Error())
		return err
	}
	fw.remaining--
	fw.iter++
	if err := fw.broadcast(ctx, Response{Type: CurrentIter, Iter: fw.iter}); err != nil {
		return err
	}
	if fw.motor != nil {
		rs := Response{Type: Motor}
		if err := fw.readMotor(); err != nil {
			rs.Err = err
		} else {
			rs.Motor = append([]byte(nil), fw.motor...)
		}
		if err := fw.broadcast(ctx, rs); err != nil {
			return err
		}
	}
	if err := fw.sendProgress(ctx); err != nil {
		return err
	}
	tick := fw.Cortex.Tick
	if n := fw.Params.InfoInterval; n > 0 && tick%uint64(n) == 0 {
		rs := Response{Type: AreaInfo}
		rs.Areas, rs.Err = fw.AreaStats()
		if rs.Err == nil {
			fw.LogAreaStats(fw.Log, rs.Areas)
		}
		if err := fw.broadcast(ctx, rs); err != nil {
			return err
		}
	}
	if n := fw.Params.SaveInterval; n > 0 && fw.Saver != nil && tick%uint64(n) == 0 {
		if _, err := fw.Saver.SaveCortex(ctx, fw.Cortex); err != nil {
			archivist.Error("flywheel snapshot failed", err.Error())
		}
	}
	if fw.remaining == 0 {
		archivist.Info("flywheel loop done", fmt.Sprintf("%d ticks in %v", fw.iter, time.Since(*fw.start)))
		fw.start = nil
	}
	return fw.sendStatus(ctx)
}

func (fw *Flywheel) readMotor() error {
	rg, err := fw.Cortex.Thal.OutputFrame(fw.motorAddr)
	if err != nil {
		return err
	}
	defer rg.Release()
	return rg.CopyTo(fw.motor)
}

// sendProgress reports each sampler that got frames since the last tick.
func (fw *Flywheel) sendProgress(ctx context.Context) error {
	for _, ar := range fw.Cortex.Areas {
		for _, sm := range fw.Cortex.Thal.SamplersFor(ar.Id) {
			d := sm.Delivered.Load()
			if d == fw.delivered[sm] {
				continue
			}
			fw.delivered[sm] = d
			pi := &ProgressInfo{Area: sm.Area, Kind: sm.Kind.Type.String(), Delivered: d, Dropped: sm.Dropped.Load()}
			if err := fw.broadcast(ctx, Response{Type: SampleProgress, Progress: pi}); err != nil {
				return err
			}
		}
	}
	return nil
}

// AreaStats returns the soma statistics of every data layer.
func (fw *Flywheel) AreaStats() ([]AreaStats, error) {
	var ass []AreaStats
	for _, ar := range fw.Cortex.Areas {
		if err := ar.Graph.Finish(); err != nil {
			return nil, err
		}
		as := AreaStats{Area: ar.Name, Tick: ar.Time.Tick}
		for _, dl := range ar.DataLayers() {
			li := ar.Map.Layer(dl.Name())
			addr := layermap.LayerAddr{AreaId: ar.Id, Tags: li.Tags}
			sf := ar.Sample(thalamus.SamplerKind{Type: thalamus.SomaStates, Addr: &addr})
			if sf.Err != nil {
				return nil, sf.Err
			}
			as.Layers = append(as.Layers, SomaStats(dl.Name(), sf.Data))
		}
		ass = append(ass, as)
	}
	return ass, nil
}

// SomaStats computes the statistics of one layer's soma states.
func SomaStats(layer string, states []byte) LayerStats {
	ls := LayerStats{Layer: layer}
	if len(states) == 0 {
		return ls
	}
	ls.Soma.Init()
	ls.Min = 255
	for i, s := range states {
		v := float32(s)
		ls.Soma.UpdateVal(v, int32(i))
		if v < ls.Min {
			ls.Min = v
		}
		if s > 0 {
			ls.NActive++
		}
	}
	ls.Soma.CalcAvg()
	return ls
}
