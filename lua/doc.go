// Package lua provides Redis-compatible Lua script execution for EVAL.
//
// Scripts see the KEYS and ARGV tables and the redis.call, redis.pcall,
// redis.status_reply and redis.error_reply functions. Commands issued from a
// script go through the same Executor as client commands. Values are
// converted between Lua and RESP the way Redis does: integers become
// numbers, a nil bulk string becomes false, status and error replies become
// tables with an ok or err field, and numbers returned by the script are
// truncated to integers.
//
// Only the base, table, string and math libraries are loaded.
package lua
