// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/c2h5oh/datasize"
	"github.com/emer/emergent/v2/timer"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// DeviceInfo describes the host the device runs on.
type DeviceInfo struct {
	ModelName     string
	LogicalCores  int
	PhysicalCores int
	TotalMem      uint64
}

// HostInfo queries the host CPU and memory. Fields that cannot be read fall
// back to runtime values or zero.
func HostInfo() DeviceInfo {
	di := DeviceInfo{LogicalCores: runtime.NumCPU()}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		di.LogicalCores = n
	}
	if n, err := cpu.Counts(false); err == nil {
		di.PhysicalCores = n
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		di.ModelName = infos[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		di.TotalMem = vm.Total
	}
	return di
}

func (di DeviceInfo) String() string {
	return fmt.Sprintf("%s, %d logical / %d physical cores, %s memory", di.ModelName, di.LogicalCores, di.PhysicalCores,
		(datasize.ByteSize)(di.TotalMem).HumanReadable())
}

// thrJob is one contiguous span of work groups given to a worker.
type thrJob struct {
	fun    func(st, ed int)
	st, ed int
	wg     *sync.WaitGroup
}

// Device is a host compute device: a fixed pool of worker threads that run
// kernel work groups.
type Device struct {

	// name of device, for reports
	Name string

	// number of worker threads; 1 runs everything on the calling goroutine
	NThreads int

	// if true, workers lock to their OS thread
	LockThreads bool

	// maximum commands in flight on any one queue before ErrDeviceBusy
	MaxInFlight int

	Info DeviceInfo

	// per-thread busy timers
	ThrTimes []timer.Time

	// per-function (kernel and transfer) timers, by name
	FunTimes map[string]*timer.Time

	ThrChans []chan thrJob

	timeMu  sync.Mutex
	nextBuf atomic.Uint32
	rr      atomic.Uint32

	// held for reading while spans are dispatched to workers
	closeMu sync.RWMutex
	closed  bool
}

// DefaultMaxInFlight is the default queue depth.
const DefaultMaxInFlight = 256

// NewDevice starts a device with nThreads workers; nThreads <= 0 uses the
// number of logical cores.
func NewDevice(name string, nThreads int) *Device {
	dv := &Device{Name: name, MaxInFlight: DefaultMaxInFlight}
	dv.Info = HostInfo()
	if nThreads <= 0 {
		nThreads = dv.Info.LogicalCores
	}
	dv.NThreads = nThreads
	dv.ThrTimes = make([]timer.Time, nThreads)
	dv.FunTimes = make(map[string]*timer.Time)
	if nThreads > 1 {
		dv.ThrChans = make([]chan thrJob, nThreads)
		for th := 0; th < nThreads; th++ {
			dv.ThrChans[th] = make(chan thrJob, nThreads)
			go dv.ThrWorker(th)
		}
	}
	return dv
}

// Close stops the worker threads, waiting for any ThrFun in flight.
// ThrFun after Close runs on the calling goroutine.
func (dv *Device) Close() {
	dv.closeMu.Lock()
	defer dv.closeMu.Unlock()
	if dv.closed {
		return
	}
	dv.closed = true
	for _, ch := range dv.ThrChans {
		close(ch)
	}
}

// ThrWorker is the worker function run by the worker threads
func (dv *Device) ThrWorker(tt int) {
	if dv.LockThreads {
		runtime.LockOSThread()
	}
	for job := range dv.ThrChans[tt] {
		dv.ThrTimes[tt].Start()
		job.fun(job.st, job.ed)
		dv.ThrTimes[tt].Stop()
		job.wg.Done()
	}
	if dv.LockThreads {
		runtime.UnlockOSThread()
	}
}

// ThrFun runs fun over [0, n) split into contiguous spans, one per worker,
// and returns when all spans are done. Safe to call from several goroutines.
func (dv *Device) ThrFun(n int, fun func(st, ed int)) {
	if n <= 0 {
		return
	}
	nth := dv.NThreads
	if nth <= 1 || n == 1 {
		fun(0, n)
		return
	}
	dv.closeMu.RLock()
	defer dv.closeMu.RUnlock()
	if dv.closed {
		fun(0, n)
		return
	}
	if nth > n {
		nth = n
	}
	per := (n + nth - 1) / nth
	var wg sync.WaitGroup
	base := int(dv.rr.Add(1))
	for i := 0; i < nth; i++ {
		st := i * per
		if st >= n {
			break
		}
		ed := min(st+per, n)
		wg.Add(1)
		dv.ThrChans[(base+i)%dv.NThreads] <- thrJob{fun: fun, st: st, ed: ed, wg: &wg}
	}
	wg.Wait()
}

// FunTimerStart starts function timer for given function name -- ensures creation of timer
func (dv *Device) FunTimerStart(fun string) {
	dv.timeMu.Lock()
	ft, ok := dv.FunTimes[fun]
	if !ok {
		ft = &timer.Time{}
		dv.FunTimes[fun] = ft
	}
	ft.Start()
	dv.timeMu.Unlock()
}

// FunTimerStop stops function timer -- timer must already exist
func (dv *Device) FunTimerStop(fun string) {
	dv.timeMu.Lock()
	if ft, ok := dv.FunTimes[fun]; ok {
		ft.Stop()
	}
	dv.timeMu.Unlock()
}

// TimerReport reports the amount of time spent in each kernel, and in each thread
func (dv *Device) TimerReport() {
	fmt.Printf("TimerReport: %v, NThreads: %v\n", dv.Name, dv.NThreads)
	fmt.Printf("\t%24s \t%7s\t%7s\n", "Kernel", "Secs", "Pct")
	dv.timeMu.Lock()
	fnms := make([]string, 0, len(dv.FunTimes))
	for k := range dv.FunTimes {
		fnms = append(fnms, k)
	}
	sort.Strings(fnms)
	pcts := make([]float64, len(fnms))
	tot := 0.0
	for i, fn := range fnms {
		pcts[i] = dv.FunTimes[fn].TotalSecs()
		tot += pcts[i]
	}
	dv.timeMu.Unlock()
	for i, fn := range fnms {
		fmt.Printf("\t%24s \t%7.3f\t%7.1f\n", fn, pcts[i], 100*(pcts[i]/tot))
	}
	fmt.Printf("\t%24s \t%7.3f\n", "Total", tot)

	if dv.NThreads <= 1 {
		return
	}
	fmt.Printf("\n\tThr\tSecs\tPct\n")
	pcts = make([]float64, dv.NThreads)
	tot = 0.0
	for th := 0; th < dv.NThreads; th++ {
		pcts[th] = dv.ThrTimes[th].TotalSecs()
		tot += pcts[th]
	}
	for th := 0; th < dv.NThreads; th++ {
		fmt.Printf("\t%v \t%7.3f\t%7.1f\n", th, pcts[th], 100*(pcts[th]/tot))
	}
}

// newBufId returns a device-unique buffer id.
func (dv *Device) newBufId() uint32 {
	return dv.nextBuf.Add(1)
}
