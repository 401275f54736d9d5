// Package runtime deploys and destroys the containers and veth plumbing a
// topology describes: one container per node, a veth pair per declared
// interface (moved into the container's namespace), and — for a shared
// bridge layout — a host-side Linux bridge joining every peer.
package runtime

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"

	"github.com/jihwankim/wireless-emulator/pkg/classify"
	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

// Adapter wraps the Docker API client for node lifecycle and wires veth
// pairs directly via netlink/netns rather than delegating to an external
// CNI plugin — the topology's addressing is static and known up front.
type Adapter struct {
	docker *client.Client
	ns     *NSRegistry

	mu        sync.Mutex
	nodeToID  map[string]string // node name -> container id
	nodeToPID map[string]int
}

// New creates an Adapter using the Docker client configuration from the
// environment (DOCKER_HOST, etc.), matching the teacher's discovery client.
func New() (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, classify.Runtime(fmt.Errorf("create docker client: %w", err))
	}
	return &Adapter{
		docker:    cli,
		ns:        NewNSRegistry(),
		nodeToID:  make(map[string]string),
		nodeToPID: make(map[string]int),
	}, nil
}

// Close releases the Docker client and any cached namespace handles.
func (a *Adapter) Close() error {
	a.ns.CloseAll()
	return a.docker.Close()
}

// Deploy creates one container per node (network-isolated, no Docker
// networking attached — interfaces are wired directly below), then creates
// a veth pair per declared interface and moves the container-side end into
// the node's namespace with the configured IP address. Point-to-point
// links connect two peers directly; a shared bridge joins every
// participant's peer end to one host-side Linux bridge.
func (a *Adapter) Deploy(ctx context.Context, t *topology.Topology) error {
	specs := BuildNodeSpecs(t)

	for name, spec := range specs {
		id, pid, err := a.createNode(ctx, t.Prefix, name, spec)
		if err != nil {
			return classify.Runtime(fmt.Errorf("create node %s: %w", name, err))
		}
		a.mu.Lock()
		a.nodeToID[name] = id
		a.nodeToPID[name] = pid
		a.mu.Unlock()
	}

	if t.SharedBridgeMode() {
		return a.wireSharedBridge(t, specs)
	}
	return a.wirePointToPoint(t, specs)
}

func (a *Adapter) createNode(ctx context.Context, prefix, name string, spec NodeSpec) (id string, pid int, err error) {
	containerName := name
	if prefix != "" {
		containerName = prefix + "-" + name
	}

	created, err := a.docker.ContainerCreate(ctx,
		&container.Config{
			Image:      spec.Image,
			Hostname:   name,
			Tty:        false,
			Cmd:        []string{"sleep", "infinity"},
			Labels:     map[string]string{"wireless-emulator.node": name},
		},
		&container.HostConfig{
			NetworkMode: "none", // interfaces are wired by this package, not Docker
			CapAdd:      []string{"NET_ADMIN"},
		},
		&network.NetworkingConfig{},
		(*specs.Platform)(nil),
		containerName,
	)
	if err != nil {
		return "", 0, fmt.Errorf("container create: %w", err)
	}

	if err := a.docker.ContainerStart(ctx, created.ID, types.ContainerStartOptions{}); err != nil {
		return "", 0, fmt.Errorf("container start: %w", err)
	}

	inspect, err := a.docker.ContainerInspect(ctx, created.ID)
	if err != nil {
		return "", 0, fmt.Errorf("container inspect: %w", err)
	}

	return created.ID, inspect.State.Pid, nil
}

func (a *Adapter) wirePointToPoint(t *topology.Topology, specs map[string]NodeSpec) error {
	for _, link := range t.Links {
		aSpec, ok := findInterface(specs, link.A.Node, link.A.Interface)
		if !ok {
			return classify.Runtime(fmt.Errorf("link references unknown interface %s.%s", link.A.Node, link.A.Interface))
		}
		bSpec, ok := findInterface(specs, link.B.Node, link.B.Interface)
		if !ok {
			return classify.Runtime(fmt.Errorf("link references unknown interface %s.%s", link.B.Node, link.B.Interface))
		}

		if err := a.createVethPair(aSpec.HostVeth, bSpec.HostVeth); err != nil {
			return err
		}
		if err := a.moveAndConfigure(link.A.Node, aSpec.HostVeth, aSpec.IPAddress); err != nil {
			return err
		}
		if err := a.moveAndConfigure(link.B.Node, bSpec.HostVeth, bSpec.IPAddress); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) wireSharedBridge(t *topology.Topology, specs map[string]NodeSpec) error {
	br := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: t.SharedBridge.Name}}
	if err := netlink.LinkAdd(br); err != nil && !isExists(err) {
		return classify.Runtime(fmt.Errorf("create bridge %s: %w", t.SharedBridge.Name, err))
	}
	if err := netlink.LinkSetUp(br); err != nil {
		return classify.Runtime(fmt.Errorf("bring up bridge %s: %w", t.SharedBridge.Name, err))
	}

	for _, nodeName := range t.SharedBridge.Nodes {
		spec, ok := findInterface(specs, nodeName, t.SharedBridge.InterfaceName)
		if !ok {
			return classify.Runtime(fmt.Errorf("shared_bridge references unknown interface %s.%s", nodeName, t.SharedBridge.InterfaceName))
		}

		if err := a.createVethPair(spec.HostVeth, spec.PeerVeth); err != nil {
			return err
		}

		hostLink, err := netlink.LinkByName(spec.HostVeth)
		if err != nil {
			return classify.Runtime(fmt.Errorf("find host veth %s: %w", spec.HostVeth, err))
		}
		if err := netlink.LinkSetMaster(hostLink, br); err != nil {
			return classify.Runtime(fmt.Errorf("attach %s to bridge: %w", spec.HostVeth, err))
		}
		if err := netlink.LinkSetUp(hostLink); err != nil {
			return classify.Runtime(fmt.Errorf("bring up %s: %w", spec.HostVeth, err))
		}

		if err := a.moveAndConfigure(nodeName, spec.PeerVeth, spec.IPAddress); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) createVethPair(hostName, peerName string) error {
	veth := &netlink.Veth{
		LinkAttrs: netlink.LinkAttrs{Name: hostName},
		PeerName:  peerName,
	}
	if err := netlink.LinkAdd(veth); err != nil && !isExists(err) {
		return classify.Runtime(fmt.Errorf("create veth pair %s/%s: %w", hostName, peerName, err))
	}
	return nil
}

// moveAndConfigure moves the named host-side link into node's namespace,
// renames it to its declared interface name implicitly via the caller's
// bookkeeping (the veth keeps its generated name inside the namespace —
// addressing, not naming, is what the rest of the pipeline depends on),
// assigns its IP address, and brings it up.
func (a *Adapter) moveAndConfigure(node, linkName, ipAddress string) error {
	a.mu.Lock()
	pid := a.nodeToPID[node]
	a.mu.Unlock()

	link, err := netlink.LinkByName(linkName)
	if err != nil {
		return classify.Runtime(fmt.Errorf("find link %s: %w", linkName, err))
	}
	if err := netlink.LinkSetNsPid(link, pid); err != nil {
		return classify.Runtime(fmt.Errorf("move %s into node %s namespace: %w", linkName, node, err))
	}

	handle, err := a.ns.Resolve(node, pid)
	if err != nil {
		return classify.Runtime(err)
	}

	return withNamespace(handle, func() error {
		nsLink, err := netlink.LinkByName(linkName)
		if err != nil {
			return fmt.Errorf("find %s in node %s namespace: %w", linkName, node, err)
		}
		if ipAddress != "" {
			addr, err := netlink.ParseAddr(ensureCIDR(ipAddress))
			if err != nil {
				return fmt.Errorf("parse address %s: %w", ipAddress, err)
			}
			if err := netlink.AddrAdd(nsLink, addr); err != nil {
				return fmt.Errorf("assign address %s to %s: %w", ipAddress, linkName, err)
			}
		}
		return netlink.LinkSetUp(nsLink)
	})
}

// withNamespace pins the calling goroutine to its OS thread, switches into
// target for the duration of fn, and restores the original namespace
// afterward. Namespace switches are per-thread, so the goroutine must not
// migrate threads while inside fn.
func withNamespace(target netns.NsHandle, fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	if err != nil {
		return fmt.Errorf("get current namespace: %w", err)
	}
	defer netns.Set(origin)

	if err := netns.Set(target); err != nil {
		return fmt.Errorf("enter target namespace: %w", err)
	}
	return fn()
}

// Destroy tears down every node's container. Namespace-scoped links and
// qdiscs disappear with the namespace; only the shared bridge (if any)
// needs explicit removal.
func (a *Adapter) Destroy(ctx context.Context, t *topology.Topology) error {
	a.mu.Lock()
	ids := make(map[string]string, len(a.nodeToID))
	for k, v := range a.nodeToID {
		ids[k] = v
	}
	a.mu.Unlock()

	var firstErr error
	for node, id := range ids {
		if err := a.docker.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true}); err != nil && firstErr == nil {
			firstErr = classify.Runtime(fmt.Errorf("remove container for node %s: %w", node, err))
		}
		a.ns.Close(node)
	}

	if t.SharedBridgeMode() {
		if br, err := netlink.LinkByName(t.SharedBridge.Name); err == nil {
			_ = netlink.LinkDel(br)
		}
	}

	return firstErr
}

// PID returns the cached container PID for node, used by pkg/tc to resolve
// its namespace for qdisc operations.
func (a *Adapter) PID(node string) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pid, ok := a.nodeToPID[node]
	return pid, ok
}

// Namespace resolves node's cached namespace handle, for callers (pkg/tc)
// that need to enter it directly.
func (a *Adapter) Namespace(node string) (netns.NsHandle, error) {
	pid, ok := a.PID(node)
	if !ok {
		return netns.None(), classify.Runtime(fmt.Errorf("node %s has not been deployed", node))
	}
	return a.ns.Resolve(node, pid)
}

// WithNamespace resolves node's namespace and runs fn inside it, restoring
// the caller's namespace afterward. Used by pkg/tc to install qdiscs on a
// node's interfaces without shelling out.
func (a *Adapter) WithNamespace(node string, fn func() error) error {
	handle, err := a.Namespace(node)
	if err != nil {
		return err
	}
	return withNamespace(handle, fn)
}

func findInterface(specs map[string]NodeSpec, node, iface string) (InterfaceSpec, bool) {
	spec, ok := specs[node]
	if !ok {
		return InterfaceSpec{}, false
	}
	for _, i := range spec.Interfaces {
		if i.Name == iface {
			return i, true
		}
	}
	return InterfaceSpec{}, false
}

func isExists(err error) bool {
	return err != nil && (err.Error() == "file exists" || netlink.IsExistsError(err))
}

func ensureCIDR(addr string) string {
	if _, _, err := net.ParseCIDR(addr); err == nil {
		return addr
	}
	if ip := net.ParseIP(addr); ip != nil {
		if ip.To4() != nil {
			return addr + "/24"
		}
		return addr + "/64"
	}
	return addr
}
