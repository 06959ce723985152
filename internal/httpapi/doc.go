// Package httpapi exposes the game over HTTP.
//
// Routes:
//   - POST /guesses/submit/:uid  {"guess":"higher"|"lower"} -> {"guessId"}
//   - GET  /guesses/score/:uid   -> {"score","correctGuesses","wins","losses"}
//   - GET  /btc/current          -> {"price","timestamp"}
//   - GET  /health               -> {"status","stage","commit","version"}
//
// Validation errors map to 400, an active cooldown to 429 with Retry-After,
// an empty price series to 404. Every other failure is a generic 500.
package httpapi
