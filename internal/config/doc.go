// Package config reads the blockflow.hcl settings file and resolves it, on
// top of built-in defaults, into the Settings the application is wired from.
//
// Expressions in the file may read the process environment through the env
// object, e.g. openai_api_key = env.OPENAI_API_KEY.
package config
