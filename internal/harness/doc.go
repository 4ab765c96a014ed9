// Package harness runs scripted progression scenarios against a real engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: sign_in_catch_up
//	description: "Offline progress is awarded once the user signs in"
//	catalog:
//	  dir: ../catalogs/small      # optional; embedded default otherwise
//	local:
//	  points: 200
//	  counters: { sql_levels: 4 }
//	remote:
//	  user: u1
//	  points: 500
//	  awards: [first_blood]
//	steps:
//	  - increment: sql_levels
//	  - sign_in: u1
//	  - complete_lab: { lab_id: level-1, lab_type: sql_injection, points: 100 }
//	  - complete_challenge: xss-101
//	    repeat: 2
//	expect:
//	  points: 900
//	  notifications: [sql_specialist]
//	  remote_awards: [first_blood, sql_specialist]
//
// Each step sets exactly one action: sign_in, sign_out, add_points,
// complete_challenge, increment, complete_lab or evaluate. complete_lab
// claims the lab (ledger row, then points) and may name the error code it
// expects with expect_error.
//
// # Deterministic Execution
//
// Every scenario gets a fresh in-memory SQLite store with stepping
// timestamps and sequential row ids, an in-memory snapshot, a fixed session
// id and inline persistence, so all remote effects of a step have happened
// before the next one starts. The trace is therefore stable and can be
// compared against golden files.
package harness
