package service

import "sync"

// FolderLocks is an arena of per-folder-path mutexes. Membership mutation
// for a folder path must hold its lock; scoring reads may proceed
// concurrently with other folders' mutations. One arena is shared by every
// service that mutates membership -- routing, clustering and cleanup all
// receive the same instance at construction. Locks are never removed; the
// taxonomy is small relative to the corpus.
type FolderLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFolderLocks creates the shared lock arena.
func NewFolderLocks() *FolderLocks {
	return &FolderLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for a folder path and returns its unlock func.
func (l *FolderLocks) Lock(path string) func() {
	l.mu.Lock()
	m, ok := l.locks[path]
	if !ok {
		m = &sync.Mutex{}
		l.locks[path] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
