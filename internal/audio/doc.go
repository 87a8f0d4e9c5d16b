// Package audio plays raw PCM through the system audio device using
// oto/v3. A process may only own one oto context, so the Device is created
// once and handed to whatever needs to play sound.
package audio
