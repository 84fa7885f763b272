// Package agents wires the pieces into a runnable voice agent: realtime
// client, fee catalogue, session state machine, tool dispatch, and the UI
// notifier.
package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	billdesk "github.com/bec-bridge/billdesk-voice"
	"github.com/bec-bridge/billdesk-voice/shared"
	"github.com/bec-bridge/billdesk-voice/tools"
	"github.com/goccy/go-yaml"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/realtime"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

// VoiceAgent runs one conversation: it owns the realtime client, the session
// state machine, and the tool dispatcher.
type VoiceAgent struct {
	logger     shared.LoggerAdapter
	printer    *shared.Printer
	client     *billdesk.Client
	session    *billdesk.Session
	dispatcher *tools.Dispatcher
	micTrack   mediadevices.Track

	mu sync.Mutex
}

// Session exposes the state machine, e.g. for wiring the wallet-status
// signal from the UI bridge.
func (a *VoiceAgent) Session() *billdesk.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *VoiceAgent) Done() <-chan struct{} {
	return a.client.Done()
}

func (a *VoiceAgent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

// Spawn builds the session from the room metadata, connects the realtime
// client, and starts the conversation. metadata may be empty; the agent then
// opens without personalized context.
func (a *VoiceAgent) Spawn(
	ctx context.Context,
	logger shared.LoggerAdapter,
	apiKey string,
	cfg *realtime.RealtimeSessionCreateRequestParam,
	metadata string,
	notifier billdesk.Notifier,
	printer *shared.Printer,
	baseUrl ...string,
) error {
	if logger == nil {
		return shared.ErrNoLogger
	}
	if apiKey == "" {
		return shared.ErrNoAPIKey
	}
	if cfg == nil {
		return shared.ErrNoConfig
	}
	if notifier == nil {
		return shared.ErrNoNotifier
	}
	if printer == nil {
		return errors.New("no printer provided")
	}
	a.logger = logger
	a.printer = printer
	a.logger.Info("spawning voice agent")
	if err := a.printer.Writeln("🤖 Spawning BillDesk voice agent...\n", 0); err != nil {
		a.logger.Error("printing spawning message", err)
	}

	// Session state machine over the fee catalogue
	meta := billdesk.ParseRoomMetadata(a.logger, metadata)
	catalogue := billdesk.DefaultCatalogue()
	session, err := billdesk.NewSession(catalogue, notifier, a.logger)
	if err != nil {
		a.logger.Error("creating session state", err)
		return err
	}
	a.session = session
	a.dispatcher, err = tools.NewDispatcher(session, a.logger)
	if err != nil {
		a.logger.Error("creating tool dispatcher", err)
		return err
	}

	// Creating client
	if len(baseUrl) > 0 {
		a.client, err = billdesk.NewClient(ctx, a.logger, apiKey, baseUrl[0])
	} else {
		a.client, err = billdesk.NewClient(ctx, a.logger, apiKey, "")
	}
	if err != nil {
		a.logger.Error("creating client", err)
		return err
	}
	a.logger.Info("client created successfully")
	spawned := false
	defer func() {
		// a failed spawn must not leak the peer connection
		if spawned {
			return
		}
		if cerr := a.client.Close(); cerr != nil {
			a.logger.Error("closing client after failed spawn", cerr)
		}
	}()

	// Session config: instructions come from the metadata context
	cfg.Instructions = param.NewOpt(billdesk.Instructions(meta))
	if err := a.client.SetConfig(cfg); err != nil {
		a.logger.Error("setting up session config", err)
		return err
	}
	if err := a.client.SetStartup(billdesk.Greeting(meta), tools.Schemas()); err != nil {
		a.logger.Error("setting up startup events", err)
		return err
	}
	if err := a.printer.Writeln("📋 Session Config\n", 0); err != nil {
		a.logger.Error("printing session config message", err)
	}
	yamlBytes, err := yaml.MarshalWithOptions(cfg, yaml.UseJSONMarshaler())
	if err != nil {
		a.logger.Error("marshaling session config to yaml", err)
		return err
	}
	if err := a.printer.Write(string(yamlBytes), 1); err != nil {
		a.logger.Error("printing session config", err)
		return err
	}

	// Getting microphone access and stream
	if err := a.printer.Writeln("\n\n🎤 Accessing microphone...", 0); err != nil {
		a.logger.Error("printing microphone access message", err)
	}
	opusParams, err := opus.NewParams()
	if err != nil {
		a.logger.Error("creating opus params", err)
		return err
	}
	micStream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Audio: func(c *mediadevices.MediaTrackConstraints) {
			c.SampleRate = prop.Int(48000)
			c.ChannelCount = prop.Int(1)
			c.SampleSize = prop.Int(16)
		},
		Codec: mediadevices.NewCodecSelector(
			mediadevices.WithAudioEncoders(&opusParams),
		),
	})
	if err != nil {
		a.logger.Error("getting microphone stream", err)
		if err := a.printer.Writeln("❌ Unable to access microphone. Please ensure that your microphone is connected and that you have granted permission to access it.\n", 0); err != nil {
			a.logger.Error("printing microphone access failure message", err)
		}
		return err
	}
	if audioTracks := micStream.GetAudioTracks(); len(audioTracks) > 0 {
		a.micTrack = audioTracks[0]
	} else {
		a.logger.Error("no audio track found in microphone stream", errors.New("no audio track"))
		return errors.New("no audio track found in microphone stream")
	}
	if err := a.printer.Writeln("✅ Microphone access granted.\n", 0); err != nil {
		a.logger.Error("printing microphone access success message", err)
	}

	// The assistant's audio is rendered by the frontend; the agent just
	// keeps the remote track drained.
	err = a.client.RegisterTrackRemoteHandler(func(track *webrtc.TrackRemote) {
		a.logger.Info(
			"received remote track",
			zap.String("kind", track.Kind().String()),
			zap.String("codec", track.Codec().MimeType),
		)
		tools.DrainRemoteAudio(ctx, a.logger, track)
	})
	if err != nil {
		a.logger.Error("registering track remote handler", err)
		return err
	}

	err = a.client.RegisterTrackLocalHandler(func(track *webrtc.TrackLocalStaticSample) {
		tools.StreamLocalAudio(ctx, a.logger, track, a.micTrack, time.Duration(opusParams.Latency))
	})
	if err != nil {
		a.logger.Error("registering track local handler", err)
		return err
	}

	if err := a.client.RegisterEventHandler(a.handleEvent(ctx)); err != nil {
		a.logger.Error("registering event handler", err)
		return err
	}

	if err := a.client.Start(); err != nil {
		a.logger.Error("starting client", err)
		return err
	}
	spawned = true
	a.logger.Info("voice agent started")
	if err := a.printer.Writeln("🎙️ Voice agent is live.\n", 0); err != nil {
		a.logger.Error("printing live message", err)
	}
	return nil
}

func (a *VoiceAgent) handleEvent(ctx context.Context) billdesk.EventHandler {
	return func(event *billdesk.ServerEvent) {
		switch p := event.Param.(type) {
		case *billdesk.ErrorParam:
			a.logger.Error("session error", errors.New(p.Message), zap.String("code", p.Code))
		case *billdesk.InputTranscriptionCompletedParam:
			if err := a.printer.Writeln(fmt.Sprintf("🧑 %s", p.Transcript), 0); err != nil {
				a.logger.Error("printing user transcript", err)
			}
		case *billdesk.OutputTranscriptDoneParam:
			if err := a.printer.Writeln(fmt.Sprintf("🤖 %s", p.Transcript), 0); err != nil {
				a.logger.Error("printing assistant transcript", err)
			}
		case *billdesk.FunctionCallArgumentsDoneParam:
			a.handleToolCall(ctx, p)
		}
	}
}

// handleToolCall runs one completed tool call against the state machine and
// feeds the reply back so the model can speak it. Dispatch failures become a
// spoken apology rather than ending the session.
func (a *VoiceAgent) handleToolCall(ctx context.Context, p *billdesk.FunctionCallArgumentsDoneParam) {
	a.logger.Info(
		"dispatching tool call",
		zap.String("name", p.Name),
		zap.String("call_id", p.CallId),
	)
	reply, err := a.dispatcher.Dispatch(ctx, p.Name, p.Arguments)
	if err != nil {
		a.logger.Error("dispatching tool call", err, zap.String("name", p.Name))
		reply = "Sorry, I ran into a problem doing that. Could you try again?"
	}
	if err := a.client.Send(billdesk.NewFunctionCallOutput(p.CallId, reply)); err != nil {
		a.logger.Error("sending function call output", err)
		return
	}
	if err := a.client.Send(billdesk.NewResponseCreate("")); err != nil {
		a.logger.Error("requesting response after tool call", err)
	}
}
