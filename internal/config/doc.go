// Package config loads and saves the session configuration.
//
// Configuration is a small JSON document:
//
//	{
//	  "provenance": {
//	    "enabled": true,
//	    "reentry_exception": true,
//	    "max_entries": 0
//	  },
//	  "scripts": ["startup.lua"]
//	}
//
// A missing file is not an error; defaults apply. Environment variables
// with the LUAPROV_ prefix override file values:
//
//	LUAPROV_ENABLED            provenance.enabled
//	LUAPROV_REENTRY_EXCEPTION  provenance.reentry_exception
//	LUAPROV_MAX_ENTRIES        provenance.max_entries
//	LUAPROV_SCRIPTS            scripts (colon-separated)
package config
