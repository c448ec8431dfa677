// Package audit records changes made to the config entry through the API.
//
// Each record names the action, the entry it touched, the bearer token
// subject that made it, and non-secret details such as the new poll
// interval. API keys are never written; a key replacement is recorded with
// its hint only.
package audit
