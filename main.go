// Command hotcore boots a single replica of the consensus core over TCP,
// the way CGCL-codes-Remora's main.go boots a fork1/qcdag/Remora node from
// a viper-loaded config.Config.
package main

import (
	"fmt"
	"time"

	"Hotcore/config"
	"Hotcore/conn"
	"Hotcore/core"
	"Hotcore/node"
	"Hotcore/sign"

	"github.com/hashicorp/go-hclog"
)

var conf *config.Config
var err error

func init() {
	conf, err = config.LoadConfig("", "config")
	if err != nil {
		panic(err)
	}
}

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "hotcore",
		Output: hclog.DefaultOutput,
		Level:  hclog.Level(conf.LogLevel),
	})

	keys := &sign.KeySet{
		RID:          conf.RID,
		PrivateKey:   conf.PrivateKey,
		PublicKeys:   conf.PublicKeyMap,
		TSPrivateKey: conf.TSPrivateKey,
		TSPublicKey:  conf.TSPublicKey,
	}

	trans := conn.NewTransport(logger, int(conf.NMaj))

	c := core.New(core.ReplicaID(conf.RID), keys, nil) // Actions wired below, after Node exists.
	c.OnInit(conf.NFaulty, conf.Delta)
	for _, r := range conf.Replicas {
		c.AddReplica(core.ReplicaID(r.RID))
	}
	c.SetTSPublicKey(conf.TSPublicKey)
	c.SetNegVote(conf.NegVote)

	genesis := &core.Block{}
	c.Finalize(genesis)

	peers := make(map[core.ReplicaID]node.Peer)
	self := core.ReplicaID(conf.RID)
	for _, r := range conf.Replicas {
		if core.ReplicaID(r.RID) == self {
			continue
		}
		peers[core.ReplicaID(r.RID)] = node.Peer{
			RID:    core.ReplicaID(r.RID),
			Addr:   r.Addr,
			Port:   r.Port,
			PubKey: r.PubKey,
		}
	}

	n := node.NewNode(self, c, trans, peers, keys, logger, conf.Delta*3, conf.BatchSize)
	c.SetActions(n.Actions())

	var selfPeer node.Peer
	for _, r := range conf.Replicas {
		if core.ReplicaID(r.RID) == self {
			selfPeer = node.Peer{RID: self, Addr: r.Addr, Port: r.Port}
		}
	}

	if err := n.StartListen(selfPeer.Addr, selfPeer.Port); err != nil {
		panic(err)
	}
	time.Sleep(2 * time.Second)

	fmt.Printf("replica %d starting hotcore\n", conf.RID)
	go n.HandleMsgLoop()
	n.RunLoop(func() [][]byte {
		cmds := make([][]byte, conf.BatchSize)
		for i := range cmds {
			cmds[i] = []byte("cmd")
		}
		return cmds
	})
}
