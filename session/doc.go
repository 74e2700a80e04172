// Package session reads and writes RESP frames on a single connection.
//
// Server side, a connection task loops over ReadCommand and WriteValue:
//
//	sess := session.New(conn)
//	for {
//		cmd, err := sess.ReadCommand()
//		if err != nil {
//			return err
//		}
//		if err := sess.WriteValue(execute(cmd)); err != nil {
//			return err
//		}
//	}
//
// Client side, Roundtrip sends one command and waits for its reply.
package session
