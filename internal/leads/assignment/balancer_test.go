package assignment

import (
	"testing"

	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/platform/apperr"

	"github.com/google/uuid"
)

func rep(id byte, territory string, load, capacity int, conversion float64) domain.SalesRep {
	return domain.SalesRep{
		ID:             uuid.UUID{id},
		Name:           "rep",
		Territories:    []string{territory},
		Load:           load,
		Capacity:       capacity,
		ConversionRate: conversion,
	}
}

func TestAutoAssignPicksLeastLoadedRep(t *testing.T) {
	svc := New(nil)

	repA := rep(1, "Kingston", 18, 20, 0.5)
	repB := rep(2, "Kingston", 5, 20, 0.3)

	got, err := svc.AutoAssign("Kingston", "normal", []domain.SalesRep{repA, repB})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Rep.ID != repB.ID {
		t.Errorf("assigned %v, want the 25%%-loaded rep over the 90%%-loaded one", got.Rep.ID)
	}
	if got.Overflow {
		t.Error("overflow flagged with an available candidate present")
	}
}

func TestAutoAssignBreaksTiesByConversionThenID(t *testing.T) {
	svc := New(nil)

	low := rep(9, "Montego Bay", 4, 10, 0.2)
	high := rep(3, "Montego Bay", 4, 10, 0.6)

	got, err := svc.AutoAssign("Montego Bay", "normal", []domain.SalesRep{low, high})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Rep.ID != high.ID {
		t.Errorf("equal load must fall to conversion rate, got %v", got.Rep.ID)
	}

	// Fully tied: lowest rep ID wins, so repeated calls agree.
	twinA := rep(2, "Montego Bay", 4, 10, 0.4)
	twinB := rep(7, "Montego Bay", 4, 10, 0.4)
	for i := 0; i < 3; i++ {
		got, err = svc.AutoAssign("Montego Bay", "normal", []domain.SalesRep{twinB, twinA})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Rep.ID != twinA.ID {
			t.Errorf("tie-break not deterministic on run %d: got %v", i, got.Rep.ID)
		}
	}
}

func TestAutoAssignIgnoresRepsOutsideTerritory(t *testing.T) {
	svc := New(nil)

	idle := rep(1, "Ocho Rios", 0, 10, 0.9)
	local := rep(2, "Kingston", 9, 10, 0.1)

	got, err := svc.AutoAssign("Kingston", "normal", []domain.SalesRep{idle, local})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Rep.ID != local.ID {
		t.Errorf("assigned %v from outside the territory", got.Rep.ID)
	}
}

func TestAutoAssignNoCandidatesForUnservedTerritory(t *testing.T) {
	svc := New(nil)

	_, err := svc.AutoAssign("Negril", "normal", []domain.SalesRep{rep(1, "Kingston", 0, 10, 0.5)})
	if err == nil {
		t.Fatal("expected error for unserved territory")
	}
	if !apperr.Is(err, apperr.KindNoCandidates) {
		t.Errorf("error kind = %v, want KindNoCandidates", apperr.GetKind(err))
	}
}

func TestAutoAssignOverflowsWhenAllRepsAtCapacity(t *testing.T) {
	svc := New(nil)

	full := rep(1, "Kingston", 20, 20, 0.5)
	overloaded := rep(2, "Kingston", 25, 20, 0.5)

	got, err := svc.AutoAssign("Kingston", "urgent", []domain.SalesRep{overloaded, full})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Overflow {
		t.Fatal("over-capacity assignment must be flagged as overflow")
	}
	if got.Rep.ID != full.ID {
		t.Errorf("assigned %v, want the least-overloaded rep", got.Rep.ID)
	}
}

func TestAutoAssignNeverSilentlyExceedsCapacity(t *testing.T) {
	svc := New(nil)

	populations := [][]domain.SalesRep{
		{rep(1, "Kingston", 18, 20, 0.5), rep(2, "Kingston", 5, 20, 0.3)},
		{rep(1, "Kingston", 20, 20, 0.5)},
		{rep(1, "Kingston", 30, 20, 0.5), rep(2, "Kingston", 22, 20, 0.9)},
		{rep(1, "Kingston", 19, 20, 0.5), rep(2, "Kingston", 20, 20, 0.9)},
	}

	for i, reps := range populations {
		got, err := svc.AutoAssign("Kingston", "normal", reps)
		if err != nil {
			t.Fatalf("population %d: unexpected error: %v", i, err)
		}
		if got.Rep.Load >= got.Rep.Capacity && !got.Overflow {
			t.Errorf("population %d: rep at %d/%d assigned without overflow flag",
				i, got.Rep.Load, got.Rep.Capacity)
		}
	}
}

func TestManualAssignRejectsFullRepWithoutForce(t *testing.T) {
	svc := New(nil)
	full := rep(4, "Kingston", 20, 20, 0.5)

	_, err := svc.ManualAssign(full, false)
	if err == nil {
		t.Fatal("expected error assigning to a rep at capacity")
	}
	if !apperr.Is(err, apperr.KindCapacityExceeded) {
		t.Errorf("error kind = %v, want KindCapacityExceeded", apperr.GetKind(err))
	}

	got, err := svc.ManualAssign(full, true)
	if err != nil {
		t.Fatalf("forced assignment failed: %v", err)
	}
	if !got.Overflow {
		t.Error("forced over-capacity assignment must be flagged as overflow")
	}
}

func TestManualAssignAcceptsAvailableRep(t *testing.T) {
	svc := New(nil)
	open := rep(5, "Kingston", 3, 20, 0.5)

	got, err := svc.ManualAssign(open, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Rep.ID != open.ID || got.Overflow {
		t.Errorf("assignment = %+v, want the target rep without overflow", got)
	}
}
