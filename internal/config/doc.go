// Package config loads everything amldeploy needs to know before it talks to
// the platform.
//
// Configuration comes from three places, loaded once at process start and
// passed down explicitly:
//
//   - [Environment]: workspace coordinates and resource names from environment
//     variables (optionally seeded from a .env file).
//   - [Settings]: workflow constants such as endpoint names, instance sizes,
//     images and request files, with defaults that can be overridden by an
//     amldeploy.yaml file.
//   - [Timeouts]: polling intervals and deadlines, tunable through AML_*
//     environment variables.
package config
