// Package input synthesizes the keyboard and mouse events that a scene session sends to the
// application under test.
//
// The Synthesizer is stateful: every event it builds is merged with the events it delivered
// before, so that modifiers and held mouse buttons accumulate across a press/release sequence
// the way they would for a real device. The Tracker records which keys and buttons are held,
// so that a session can release all of them when it is torn down.
package input
