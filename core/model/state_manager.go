// Package model provides the estimator interfaces and shared fitted-state
// bookkeeping used by every estimator in nidsbench.
package model

import (
	"sync"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// StateManager は推定器の学習済みフラグと学習時の形状を保持する。
// 推定器は構造体に *StateManager を持ち、Fit の先頭で Reset、末尾で MarkFitted を呼ぶ。
// 評価を並列実行しても読めるよう RWMutex で守る。
type StateManager struct {
	mu        sync.RWMutex
	fitted    bool
	nFeatures int
	nSamples  int
}

func NewStateManager() *StateManager {
	return &StateManager{}
}

// MarkFitted records the training shape and flips the fitted flag.
func (s *StateManager) MarkFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	s.fitted, s.nFeatures, s.nSamples = true, nFeatures, nSamples
	s.mu.Unlock()
}

// Reset forgets a previous fit.
func (s *StateManager) Reset() {
	s.mu.Lock()
	s.fitted, s.nFeatures, s.nSamples = false, 0, 0
	s.mu.Unlock()
}

func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// Dimensions returns the (features, samples) shape seen by the last fit.
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted fails with NotFittedError("<modelName>", "<method>") before
// the first MarkFitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if s.IsFitted() {
		return nil
	}
	return errors.NewNotFittedError(modelName, method)
}

// CheckFeatures compares a column count with the training width (axis 1).
func (s *StateManager) CheckFeatures(op string, got int) error {
	if want, _ := s.Dimensions(); got != want {
		return errors.NewDimensionError(op, want, got, 1)
	}
	return nil
}
