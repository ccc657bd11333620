// This file is part of Gopherboy.
//
// Gopherboy is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopherboy is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopherboy.  If not, see <https://www.gnu.org/licenses/>.

// Package speakers plays the audio unit's sample stream through the host's
// audio device. The oto player pulls from a queue on its own goroutine; the
// queue is the only shared state and sits outside the emulation tick path.
package speakers

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/clocks"
	"github.com/jetsetilly/gopherboy/logger"
)

// bytes per interleaved stereo float32 sample pair
const frameSize = 8

// cap the queue at half a second of audio. the emulation producing faster
// than realtime drops the oldest samples rather than growing without bound
const maxQueuedBytes = clocks.AudioSampleRate / 2 * frameSize

// Speakers queues samples from the audio unit and feeds them to the host
// audio device.
type Speakers struct {
	ctx    *oto.Context
	player *oto.Player

	crit  sync.Mutex
	queue []byte
}

// New is the preferred method of initialisation for the Speakers type. The
// returned Speakers is already playing; silence until samples are queued.
func New() (*Speakers, error) {
	op := &oto.NewContextOptions{
		SampleRate:   clocks.AudioSampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, curated.Errorf("speakers: %v", err)
	}
	<-ready

	spk := &Speakers{
		ctx:   ctx,
		queue: make([]byte, 0, maxQueuedBytes),
	}
	spk.player = ctx.NewPlayer(spk)
	spk.player.Play()

	logger.Log("speakers", "audio device ready")

	return spk, nil
}

// Queue interleaved stereo samples for playback.
func (spk *Speakers) Queue(samples []float32) {
	spk.crit.Lock()
	defer spk.crit.Unlock()

	var b [4]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(s))
		spk.queue = append(spk.queue, b[:]...)
	}

	if len(spk.queue) > maxQueuedBytes {
		over := len(spk.queue) - maxQueuedBytes
		spk.queue = spk.queue[over:]
	}
}

// Read implements the io.Reader interface. Called by the oto player from its
// own goroutine. An empty queue reads as silence so playback never stalls.
func (spk *Speakers) Read(p []byte) (int, error) {
	spk.crit.Lock()
	defer spk.crit.Unlock()

	n := copy(p, spk.queue)
	spk.queue = spk.queue[n:]

	for i := n; i < len(p); i++ {
		p[i] = 0
	}

	return len(p), nil
}

// Close the audio device.
func (spk *Speakers) Close() error {
	if err := spk.player.Close(); err != nil {
		return curated.Errorf("speakers: %v", err)
	}
	return nil
}
