/*
Package common contains the process wide plumbing shared by the library and the cli.

# Logging

All packages log through the dragonboat logger facade (logger.GetLogger("store"), ...).
InitLoggers installs a factory that prints lines of the form

	2025/01/01 12:00:00 INFO  | store           | message

and sets the level of every library logger.

# Settings

LoadSettings reads the defaults of the process from ANYKV_* environment variables
(after loading .env and .env.local), see Settings for the available keys.

# Metrics

Store operations and worker tasks are counted in the VictoriaMetrics set Metrics,
WriteMetrics exports it in the prometheus text format.
*/
package common
