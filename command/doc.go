// Package command turns decoded RESP values into typed commands.
//
// A request is an array of bulk strings whose first element names the
// command (case-insensitive). Each command declares how many arguments it
// requires and how many optional ones it accepts; missing or surplus
// arguments fail with ErrWrongNumArgs and values of the wrong shape fail with
// an *InvalidArgumentError.
//
//	cmd, err := command.Parse([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))
//	if err != nil {
//		return err
//	}
//	get := cmd.(*command.Get)
//
// Commands also render back to their wire form with Value, which is how the
// replication handshake sends PING and REPLCONF to a master.
package command
