// Package voicestream implements a client SDK for realtime voice
// conversation servers. It maintains a reconnecting websocket connection,
// streams microphone audio upstream, plays synthesized speech downstream,
// and keeps the microphone muted while the speaker is active so the
// connection never hears its own output.
//
// The entry point is Session:
//
//	cfg := voicestream.DefaultConfig()
//	cfg.ServerURL = "wss://voice.example.com/stream"
//	cfg.TenantID = "clinic-42"
//
//	sess, err := voicestream.NewWithDevices(cfg, captureDev, playbackFactory)
//	sess.On(voicestream.EventConnected, func(voicestream.Event) {
//		sess.StartAudioStreaming()
//	})
//	sess.On(voicestream.EventTranscript, func(ev voicestream.Event) {
//		data := ev.Data.(voicestream.TranscriptData)
//		fmt.Println(data.Text)
//	})
//	sess.Connect()
//
// Audio hardware is injected through the CaptureDevice and PlaybackDevice
// capability interfaces; see the device package for malgo-backed
// implementations.
package voicestream
