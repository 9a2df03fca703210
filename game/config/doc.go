// Package config provides topic and settings management for the memory game.
//
// The config package handles:
//   - Loading topics from JSON files in an optional topics directory
//   - Serving the built-in DevOps topic when no directory is configured
//   - Topic discovery and listing
//   - Reading game and server settings from the environment
//
// Topic Format:
//
// A topic file is named <id>.json and declares the same id:
//
//	{
//	  "id": "kubernetes",
//	  "name": "Kubernetes",
//	  "description": "Core objects",
//	  "pairs": [
//	    {"term": "Pod", "definition": "Smallest deployable unit", "icon": "📦"},
//	    {"term": "Service", "definition": "Stable network endpoint", "icon": "🔌"}
//	  ]
//	}
//
// A topic needs between 2 and 50 pairs, every term and definition non-empty,
// and no two pairs sharing a term.
//
// Usage:
//
//	manager, err := config.NewManager("topics")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	topic, err := manager.LoadTopic("kubernetes")
//	topics, err := manager.ListTopics()
//
//	settings, err := config.LoadSettings()
package config
