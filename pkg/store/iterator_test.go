package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataIteratorDrainsProducer(t *testing.T) {
	it, prod := NewMetadataIterator(context.Background())

	go func() {
		defer prod.Done()
		for i := 0; i < 50; i++ {
			if !prod.Emit(&Metadata{Name: fmt.Sprintf("rec-%02d", i)}) {
				return
			}
		}
	}()

	var count int
	for it.Next() {
		assert.Equal(t, fmt.Sprintf("rec-%02d", count), it.Metadata().Name)
		count++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 50, count)
}

func TestMetadataIteratorPropagatesError(t *testing.T) {
	it, prod := NewMetadataIterator(context.Background())
	boom := errors.New("backend exploded")

	go func() {
		defer prod.Done()
		prod.Emit(&Metadata{Name: "first"})
		prod.Fail(boom)
	}()

	var seen []string
	for it.Next() {
		seen = append(seen, it.Metadata().Name)
	}
	assert.Equal(t, []string{"first"}, seen)
	assert.ErrorIs(t, it.Err(), boom)
}

func TestMetadataIteratorEarlyClose(t *testing.T) {
	it, prod := NewMetadataIterator(context.Background())
	producerDone := make(chan struct{})

	go func() {
		defer close(producerDone)
		defer prod.Done()
		for i := 0; ; i++ {
			if !prod.Emit(&Metadata{Name: fmt.Sprintf("rec-%d", i)}) {
				return
			}
		}
	}()

	require.True(t, it.Next())
	require.NoError(t, it.Close())

	// Emit observes the cancellation and the producer exits.
	<-producerDone

	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestMetadataIteratorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	it, prod := NewMetadataIterator(ctx)
	producerDone := make(chan struct{})

	go func() {
		defer close(producerDone)
		defer prod.Done()
		for i := 0; ; i++ {
			if !prod.Emit(&Metadata{Name: fmt.Sprintf("rec-%d", i)}) {
				return
			}
		}
	}()

	require.True(t, it.Next())
	cancel()
	<-producerDone
}

func TestMetadataIteratorCollect(t *testing.T) {
	it, prod := NewMetadataIterator(context.Background())

	go func() {
		defer prod.Done()
		prod.Emit(&Metadata{Name: "a"})
		prod.Emit(&Metadata{Name: "b"})
	}()

	all, err := it.Collect()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "b", all[1].Name)
}

func TestMetadataIteratorCollectError(t *testing.T) {
	it, prod := NewMetadataIterator(context.Background())
	boom := errors.New("scan failed")

	go func() {
		defer prod.Done()
		prod.Emit(&Metadata{Name: "a"})
		prod.Fail(boom)
	}()

	_, err := it.Collect()
	assert.ErrorIs(t, err, boom)
}
