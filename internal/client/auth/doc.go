// Package auth models the authentication screens as a closed set of steps
// (Login, SignUp, ForgotPassword, Otp) and the transitions between them.
//
// Next is the pure transition function. Machine serialises transitions,
// tracks an epoch so late completions can be discarded, and reports the
// single exit edge (a verified OTP) to its owner. Flow wires the Login,
// SignUp and ForgotPassword submissions to the backend.
package auth
