// Package config resolves apimcp settings.
//
// Every key is looked up in the process environment first, then in ./.env,
// then in ~/.apimcp/.env, and finally in the optional YAML file passed with
// --config. The YAML file is a flat mapping whose keys are the environment
// names in any case:
//
//	openapi_spec_url: https://api.example.com/openapi.json
//	docs_base_url: https://docs.example.com
//	search_fallback: bm25
//
// [Load] applies defaults and returns [ErrMissingSpecURL] or
// [ErrInvalidTransport] for the two settings the server cannot run without.
package config
