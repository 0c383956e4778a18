// Package crontab parses vixie-cron style crontab files and computes when a
// parsed entry fires next.
//
// # Line grammar
//
//	user line     minute hour dom month dow command
//	system line   minute hour dom month dow username command
//	macro line    @keyword [username] command
//	environment   NAME=value
//	comment       # anything
//
// Each calendar field is a comma-separated list of "*", "N", "N-M", any of
// them optionally followed by "/step". Month and day-of-week fields also
// accept case-insensitive three-letter names. A leading "-" suppresses
// execution logging and is only accepted in privileged contexts.
//
// # Parsing
//
// Parser reads one entry per call to Next. A malformed line yields a
// *ParseError carrying one of the Code tags; the rest of that line is skipped
// and the following call continues with the next line.
//
// # Scheduling
//
// Entry.Next returns the earliest minute at or after a reference time that
// satisfies the entry. Day-of-month and day-of-week combine the traditional
// way: when neither field starts with "*" a day matches if either field
// matches, otherwise both must match. A stepped wildcard such as "*/2"
// counts as starting with "*", so "0 0 */2 * 1" fires only on odd days that
// are Mondays.
package crontab
