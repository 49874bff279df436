package logs

import logging "github.com/ipfs/go-log/v2"

// SetAllLoggers sets the level of every subsystem, keeping the chatty libp2p ones quieter.
func SetAllLoggers(level logging.LogLevel) {
	logging.SetAllLoggers(level)
	_ = logging.SetLogLevel("addrutil", "INFO")
	_ = logging.SetLogLevel("dht", "ERROR")
	_ = logging.SetLogLevel("dht/RtRefreshManager", "FATAL")
	_ = logging.SetLogLevel("swarm2", "WARN")
	_ = logging.SetLogLevel("connmgr", "WARN")
	_ = logging.SetLogLevel("nat", "INFO")
	_ = logging.SetLogLevel("rcmgr", "WARN")
	_ = logging.SetLogLevel("fx", "WARN")
	_ = logging.SetLogLevel("watchdog", "WARN")
}
