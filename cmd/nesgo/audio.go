package main

import (
    "encoding/binary"
    "math"
    "sync"
)

// sampleRingBuffer is the single-producer/single-consumer ring the
// scheduler writes PCM float32 samples into and the ebiten audio player
// pulls bytes out of. Overrun drops the oldest samples; underrun repeats
// the last sample, matching the non-blocking policy the emulation core's
// concurrency model calls for.
type sampleRingBuffer struct {
    lock    sync.Mutex
    buffer  []float32
    read    int
    write   int
    filled  int
    lastOut float32
}

func newSampleRingBuffer(capacity int) *sampleRingBuffer {
    return &sampleRingBuffer{buffer: make([]float32, capacity)}
}

// PushSamples implements lib.AudioSink.
func (r *sampleRingBuffer) PushSamples(samples []float32) {
    r.lock.Lock()
    defer r.lock.Unlock()

    for _, sample := range samples {
        r.buffer[r.write] = sample
        r.write = (r.write + 1) % len(r.buffer)
        if r.filled < len(r.buffer) {
            r.filled++
        } else {
            r.read = (r.read + 1) % len(r.buffer)
        }
    }
}

func (r *sampleRingBuffer) nextSample() float32 {
    r.lock.Lock()
    defer r.lock.Unlock()

    if r.filled == 0 {
        return r.lastOut
    }
    sample := r.buffer[r.read]
    r.read = (r.read + 1) % len(r.buffer)
    r.filled--
    r.lastOut = sample
    return sample
}

// Read implements io.Reader for audiolib.NewPlayerF32: it pulls N/4
// float32 samples (little-endian, as ebiten's audio package expects) out
// of the ring, repeating the last sample on underrun rather than
// blocking.
func (r *sampleRingBuffer) Read(data []byte) (int, error) {
    count := len(data) / 4
    for i := 0; i < count; i++ {
        binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(r.nextSample()))
    }
    return count * 4, nil
}
