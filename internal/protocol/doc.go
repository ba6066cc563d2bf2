// Package protocol defines the decoded DTU message shapes and the JSON frame
// envelope that carries them into the bridge.
//
// Decoding the DTU's binary wire format happens upstream; frames arrive here
// as JSON:
//
//	{"tag": 8717, "source": "dtu-poller", "received_at": "2026-05-01T12:00:00Z", "payload": {...}}
//
// DecodeFrame turns the payload of known tags into *RealDataMessage or
// *AppInfoMessage and leaves unknown tags as json.RawMessage, so the router
// can report them as unhandled instead of failing the decode.
//
// Values in the messages are wire units. Scaling to SI units happens in the
// router's factories.
package protocol
