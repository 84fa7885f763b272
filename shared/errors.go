package shared

import "errors"

var (
	ErrNoLogger              = errors.New("no logger provided")
	ErrNoConfig              = errors.New("no config provided")
	ErrNoAPIKey              = errors.New("no API key provided")
	ErrNoCatalogue           = errors.New("no catalogue provided")
	ErrNoNotifier            = errors.New("no notifier provided")
	ErrNoSession             = errors.New("no session provided")
	ErrClientNotInitialized  = errors.New("client not initialized")
	ErrNoEventHandler        = errors.New("no event handler provided")
	ErrSessionAlreadyRunning = errors.New("session already running")
	ErrTRHandlerAlreadySet   = errors.New("track remote handler already set")
	ErrTLHandlerAlreadySet   = errors.New("track local handler already set")
	ErrEHandlerAlreadySet    = errors.New("event handler already set")
	ErrUnknownTool           = errors.New("unknown tool")
	ErrBridgeNotConnected    = errors.New("ui bridge has no connected client")
	ErrEnvMissing            = errors.New("required environment variable is not set")
)
