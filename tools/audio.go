package tools

import (
	"context"
	"io"
	"time"

	"github.com/bec-bridge/billdesk-voice/shared"
	"github.com/pion/mediadevices"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"go.uber.org/zap"
)

// StreamLocalAudio encodes the captured microphone track and writes it to the
// outbound WebRTC track until the context ends.
func StreamLocalAudio(ctx context.Context, logger shared.LoggerAdapter, track *webrtc.TrackLocalStaticSample, mediaTrack mediadevices.Track, frameDuration time.Duration) {
	reader, err := mediaTrack.NewEncodedReader(track.Codec().MimeType)
	if err != nil {
		logger.Error("creating media track reader", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		buf, release, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				release()
				return
			}
			logger.Error("reading from media track", err)
			release()
			continue
		}
		if buf.Samples == 0 {
			release()
			continue
		}
		err = track.WriteSample(media.Sample{
			Data:     buf.Data[:],
			Duration: frameDuration,
		})
		release()
		if err != nil {
			logger.Error("failed to write sample to track", err)
			continue
		}
	}
}

// DrainRemoteAudio consumes the assistant's audio track without playing it.
// The agent runs headless; the frontend renders the voice. Reading keeps the
// RTP session flowing and lets us log packet stats.
func DrainRemoteAudio(ctx context.Context, logger shared.LoggerAdapter, track *webrtc.TrackRemote) {
	logger.Info("draining remote audio",
		zap.String("codec", track.Codec().MimeType),
		zap.Uint32("clockRate", track.Codec().ClockRate),
	)
	packets := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, _, err := track.ReadRTP(); err != nil {
			if err != io.EOF {
				logger.Error("reading RTP packet", err)
			}
			logger.Info("remote audio track ended", zap.Int("packets", packets))
			return
		}
		packets++
		if packets%5000 == 0 {
			logger.Debug("remote audio flowing", zap.Int("packets", packets))
		}
	}
}
