// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempsensor

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

func newScheduler(d *fakeDriver) (*Scheduler, *clock.Mock) {
	clk := clock.NewMock()
	reg := NewRegistry(d, nil)
	reg.Scan()
	d.reset()
	return NewScheduler(d, reg, clk, nil), clk
}

func TestScheduler_defaults(t *testing.T) {
	s, _ := newScheduler(&fakeDriver{})
	if r := s.Resolution(); r != 12 {
		t.Errorf("expected 12 bits, got %d", r)
	}
	if st := s.State(); st != Idle {
		t.Errorf("expected Idle, got %s", st)
	}
	if s.Poll() {
		t.Error("nothing was requested")
	}
	if r := s.Remaining(); r != 0 {
		t.Errorf("expected nothing remaining, got %s", r)
	}
}

func TestScheduler_SetResolution(t *testing.T) {
	d := &fakeDriver{found: []onewire.Address{560, 230}}
	s, _ := newScheduler(d)
	s.SetResolution(12)
	want := []call{
		{Op: "write", Addr: 560, Cfg: [3]byte{0x00, 0xff, 0x60}},
		{Op: "copy", Addr: 560},
		{Op: "write", Addr: 230, Cfg: [3]byte{0x00, 0xff, 0x60}},
		{Op: "copy", Addr: 230},
	}
	if diff := cmp.Diff(want, d.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if r := s.Resolution(); r != 12 {
		t.Errorf("expected 12 bits, got %d", r)
	}

	d.reset()
	s.SetResolution(9)
	if len(d.calls) != 4 || d.calls[0].Cfg[2] != 0x00 {
		t.Errorf("unexpected calls %v", d.calls)
	}
	if r := s.Resolution(); r != 9 {
		t.Errorf("expected 9 bits, got %d", r)
	}
}

func TestScheduler_SetResolution_invalid(t *testing.T) {
	d := &fakeDriver{found: []onewire.Address{560, 230}}
	s, _ := newScheduler(d)
	s.SetResolution(10)
	d.reset()
	for _, r := range []Resolution{-1, 0, 8, 13, 16} {
		s.SetResolution(r)
		if len(d.calls) != 0 {
			t.Errorf("%d: expected no bus access, got %v", r, d.calls)
		}
		if got := s.Resolution(); got != 10 {
			t.Errorf("%d: resolution changed to %d", r, got)
		}
	}
}

// TestScheduler_SetResolution_partialFailure checks that a failing device
// does not stop the others and that the failure is only logged.
func TestScheduler_SetResolution_partialFailure(t *testing.T) {
	d := &fakeDriver{
		found:   []onewire.Address{560, 230},
		failing: map[onewire.Address]bool{560: true},
	}
	core, logs := observer.New(zap.WarnLevel)
	reg := NewRegistry(d, nil)
	reg.Scan()
	d.reset()
	s := NewScheduler(d, reg, clock.NewMock(), zap.New(core))
	s.SetResolution(11)
	ops := make([]string, 0, len(d.calls))
	for _, c := range d.calls {
		ops = append(ops, c.Op)
	}
	if diff := cmp.Diff([]string{"write", "copy", "write", "copy"}, ops); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if r := s.Resolution(); r != 11 {
		t.Errorf("expected 11 bits, got %d", r)
	}
	if n := logs.FilterMessage("writing resolution").Len(); n != 1 {
		t.Errorf("expected one warning, got %d", n)
	}
}

func TestScheduler_Poll(t *testing.T) {
	d := &fakeDriver{}
	s, clk := newScheduler(d)
	s.SetResolution(9)
	s.Request()
	if diff := cmp.Diff([]call{{Op: "convert", Addr: Broadcast}}, d.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if st := s.State(); st != Pending {
		t.Fatalf("expected Pending, got %s", st)
	}
	clk.Add(93999 * time.Microsecond)
	if s.Poll() {
		t.Fatal("ready 1µs early")
	}
	if r := s.Remaining(); r != time.Microsecond {
		t.Errorf("expected 1µs remaining, got %s", r)
	}
	clk.Add(time.Microsecond)
	if !s.Poll() {
		t.Fatal("not ready after 94ms")
	}
	if st := s.State(); st != Ready {
		t.Fatalf("expected Ready, got %s", st)
	}
	// Stays ready until the next request.
	clk.Add(time.Hour)
	if !s.Poll() || !s.Poll() {
		t.Fatal("expected Poll to stay true")
	}
	if len(d.calls) != 1 {
		t.Errorf("Poll must not touch the bus: %v", d.calls)
	}
}

func TestScheduler_Poll_resolutions(t *testing.T) {
	for _, r := range []Resolution{9, 10, 11, 12} {
		t.Run(r.String(), func(t *testing.T) {
			s, clk := newScheduler(&fakeDriver{})
			s.SetResolution(r)
			s.Request()
			wait := time.Duration(RequiredWaitMillis(r)) * time.Millisecond
			clk.Add(wait - time.Microsecond)
			if s.Poll() {
				t.Fatal("ready early")
			}
			clk.Add(time.Microsecond)
			if !s.Poll() {
				t.Fatalf("not ready after %s", wait)
			}
		})
	}
}

// TestScheduler_Request_restart checks that a new Request restarts the wait.
func TestScheduler_Request_restart(t *testing.T) {
	s, clk := newScheduler(&fakeDriver{})
	s.Request()
	clk.Add(700 * time.Millisecond)
	s.Request()
	clk.Add(700 * time.Millisecond)
	if s.Poll() {
		t.Fatal("the second request must restart the wait")
	}
	clk.Add(50 * time.Millisecond)
	if !s.Poll() {
		t.Fatal("not ready 750ms after the second request")
	}
	// And from Ready back to Pending.
	s.Request()
	if s.Poll() {
		t.Fatal("expected a new wait")
	}
}

func TestScheduler_RequestBlocking(t *testing.T) {
	d := &fakeDriver{}
	s, clk := newScheduler(d)
	s.Request()
	s.RequestBlocking()
	want := []call{
		{Op: "convert", Addr: Broadcast},
		{Op: "convert", Addr: Broadcast, Wait: true},
	}
	if diff := cmp.Diff(want, d.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if st := s.State(); st != Ready {
		t.Fatalf("expected Ready, got %s", st)
	}
	if !s.Poll() {
		t.Fatal("expected the blocking conversion to be ready")
	}
	clk.Add(24 * time.Hour)
	if !s.Poll() {
		t.Fatal("expected Poll to stay true")
	}
}

func TestScheduler_ReadTemperature(t *testing.T) {
	want := 21500*physic.MilliKelvin + physic.ZeroCelsius
	d := &fakeDriver{
		found: []onewire.Address{560},
		temps: map[onewire.Address]physic.Temperature{560: want},
	}
	s, _ := newScheduler(d)
	// No conversion requested, the driver is still asked.
	got, err := s.ReadTemperature(AddressOf(560))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if st := s.State(); st != Idle {
		t.Errorf("ReadTemperature changed the state to %s", st)
	}
	got, err = s.ReadTemperature(AddressOf(230))
	if err == nil || got != -127*physic.Celsius+physic.ZeroCelsius {
		t.Errorf("expected the driver's failure value, got %s, %v", got, err)
	}
	wantCalls := []call{{Op: "read", Addr: 560}, {Op: "read", Addr: 230}}
	if diff := cmp.Diff(wantCalls, d.calls, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestState_String(t *testing.T) {
	data := map[State]string{Idle: "Idle", Pending: "Pending", Ready: "Ready", 7: "State(7)"}
	for s, want := range data {
		if got := s.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
