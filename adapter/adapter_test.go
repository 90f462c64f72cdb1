package adapter

import (
	"testing"

	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/linux/hci/cmd"
	"github.com/thentenaar/bluez-dinovo/linux/hci/evt"
	"github.com/thentenaar/bluez-dinovo/storage"
)

func TestRequestModeApproved(t *testing.T) {
	ta := startTestAdapter(t)
	ag := ta.registerAgent(t, ":1.1")

	c := ta.call(":1.2", func(c *Call) { ta.RequestMode(c, "discoverable") })
	if c.Replied() {
		t.Fatalf("replied before the agent answered")
	}
	if ag.confirm == nil {
		t.Fatalf("agent was not asked")
	}

	ag.confirm(nil)
	ta.loop.run()
	expectOK(t, c)

	if ta.Mode() != bluez.ModeDiscoverable {
		t.Fatalf("expected discoverable, got %s", ta.Mode())
	}
	if len(ta.sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(ta.sessions))
	}
	if v, ok := ta.bus.property("Mode"); !ok || v != "discoverable" {
		t.Fatalf("expected Mode=discoverable signal, got %v", v)
	}
	w := ta.ctl.last(&cmd.WriteScanEnable{}).(*cmd.WriteScanEnable)
	if w.ScanEnable != bluez.ScanPage|bluez.ScanInquiry {
		t.Fatalf("expected scan 0x03, got 0x%02x", w.ScanEnable)
	}
}

func TestRequestModeRejected(t *testing.T) {
	ta := startTestAdapter(t)
	ag := ta.registerAgent(t, ":1.1")

	c := ta.call(":1.2", func(c *Call) { ta.RequestMode(c, "discoverable") })
	ag.confirm(bluez.ErrNotAuthorized())
	ta.loop.run()

	expectError(t, c, "NotAuthorized")
	if len(ta.sessions) != 0 {
		t.Fatalf("rejected session kept")
	}
	if ta.Mode() != bluez.ModeConnectable {
		t.Fatalf("mode changed to %s", ta.Mode())
	}
	if len(ta.bus.watches) != 1 {
		t.Fatalf("expected only the agent watch, got %d", len(ta.bus.watches))
	}
}

func TestRequestModeAgentUnregistered(t *testing.T) {
	ta := startTestAdapter(t)
	ag := ta.registerAgent(t, ":1.1")

	c := ta.call(":1.9", func(c *Call) { ta.RequestMode(c, "discoverable") })
	if ag.confirm == nil {
		t.Fatalf("agent was not asked")
	}

	expectOK(t, ta.call(":1.1", func(c *Call) { ta.UnregisterAgent(c, "/agent") }))
	expectError(t, c, "Failed")
	if !ag.released {
		t.Fatalf("agent not released")
	}
	if len(ta.sessions) != 0 || len(ta.confirms) != 0 {
		t.Fatalf("request kept: %d sessions, %d confirms", len(ta.sessions), len(ta.confirms))
	}
	if len(ta.bus.watches) != 0 {
		t.Fatalf("expected no watches, got %d", len(ta.bus.watches))
	}
	if ta.Mode() != bluez.ModeConnectable {
		t.Fatalf("mode changed to %s", ta.Mode())
	}
}

func TestRequestModeAgentExit(t *testing.T) {
	ta := startTestAdapter(t)
	ag := ta.registerAgent(t, ":1.1")

	c := ta.call(":1.9", func(c *Call) { ta.RequestMode(c, "discoverable") })
	answer := ag.confirm

	ta.bus.drop(":1.1")
	ta.loop.run()
	expectError(t, c, "Failed")
	if len(ta.sessions) != 0 {
		t.Fatalf("session kept after the agent left")
	}

	// an approval arriving after the agent left changes nothing
	answer(nil)
	ta.loop.run()
	if ta.Mode() != bluez.ModeConnectable {
		t.Fatalf("mode changed to %s", ta.Mode())
	}
}

func TestRequestModeErrors(t *testing.T) {
	ta := startTestAdapter(t)

	c := ta.call(":1.2", func(c *Call) { ta.RequestMode(c, "discoverable") })
	expectError(t, c, "Failed")

	ta.registerAgent(t, ":1.1")
	c = ta.call(":1.2", func(c *Call) { ta.RequestMode(c, "limited") })
	expectError(t, c, "InvalidArguments")

	c = ta.call(":1.2", func(c *Call) { ta.RequestMode(c, "connectable") })
	expectOK(t, c)
	c = ta.call(":1.2", func(c *Call) { ta.RequestMode(c, "connectable") })
	expectError(t, c, "Failed")
}

func TestSessionRemovalIdempotent(t *testing.T) {
	ta := startTestAdapter(t)
	ta.registerAgent(t, ":1.1")

	// release, then disconnect
	expectOK(t, ta.call(":1.2", func(c *Call) { ta.RequestMode(c, "connectable") }))
	expectOK(t, ta.call(":1.2", func(c *Call) { ta.ReleaseMode(c) }))
	ta.bus.drop(":1.2")
	ta.loop.run()
	if len(ta.sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(ta.sessions))
	}
	expectError(t, ta.call(":1.2", func(c *Call) { ta.ReleaseMode(c) }), "Failed")

	// disconnect, then release
	expectOK(t, ta.call(":1.3", func(c *Call) { ta.RequestMode(c, "connectable") }))
	ta.bus.drop(":1.3")
	ta.loop.run()
	if len(ta.sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(ta.sessions))
	}
	expectError(t, ta.call(":1.3", func(c *Call) { ta.ReleaseMode(c) }), "Failed")
}

func TestLastSessionRestoresGlobalMode(t *testing.T) {
	ta := startTestAdapter(t)
	ag := ta.registerAgent(t, ":1.1")
	expectOK(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "DiscoverableTimeout", uint32(30)) }))

	ta.call(":1.2", func(c *Call) { ta.RequestMode(c, "discoverable") })
	ag.confirm(nil)
	ta.loop.run()
	if ta.discovTimer != 0 {
		t.Fatalf("timeout armed while a session holds the mode")
	}

	expectOK(t, ta.call(":1.2", func(c *Call) { ta.ReleaseMode(c) }))
	if ta.Mode() != bluez.ModeConnectable {
		t.Fatalf("expected fallback to connectable, got %s", ta.Mode())
	}
}

func TestCreatePairedDeviceExistingKey(t *testing.T) {
	ta := startTestAdapter(t)
	if err := ta.store.StoreLinkKey(remoteAddr, storage.NewLinkKey([16]byte{1}, 0)); err != nil {
		t.Fatalf("store key: %v", err)
	}

	c := ta.call(":1.2", func(c *Call) {
		ta.CreatePairedDevice(c, "00:11:22:33:44:55", "/agent", "DisplayYesNo")
	})
	expectError(t, c, "AlreadyExists")
	if ta.ctl.conn != nil {
		t.Fatalf("connection attempted")
	}
}

func TestDiscoverDevicesTwice(t *testing.T) {
	ta := startTestAdapter(t)

	expectOK(t, ta.call(":1.2", func(c *Call) { ta.DiscoverDevices(c) }))
	expectError(t, ta.call(":1.2", func(c *Call) { ta.DiscoverDevices(c) }), "InProgress")
	if n := ta.ctl.count(&cmd.Inquiry{}); n != 1 {
		t.Fatalf("expected one inquiry, got %d", n)
	}
}

func TestBondingRequestorExit(t *testing.T) {
	ta := startTestAdapter(t)

	c := ta.call(":1.2", func(c *Call) {
		ta.CreatePairedDevice(c, "00:11:22:33:44:55", "/agent", "DisplayYesNo")
	})
	conn := ta.ctl.conn
	conn.signal(CondOut)
	ta.loop.run()
	if ta.ctl.count(&cmd.AuthenticationRequested{}) != 1 {
		t.Fatalf("authentication not requested")
	}

	ta.event(evt.PINCodeRequestCode, wire(remoteAddr))
	ag := ta.bus.agents[0]
	if ag.pin == nil {
		t.Fatalf("device agent not asked for a PIN")
	}

	ta.bus.drop(":1.2")
	ta.loop.run()

	if ta.ctl.count(&cmd.PINCodeRequestNegativeReply{}) != 1 {
		t.Fatalf("PIN request not rejected")
	}
	if ag.cancels == 0 || !ag.released {
		t.Fatalf("agent not cancelled and released")
	}
	if ta.bonding != nil {
		t.Fatalf("bonding still set")
	}
	if ta.findAuth(remoteAddr) != nil {
		t.Fatalf("pending auth still registered")
	}
	if ta.findDevice(remoteAddr) != nil {
		t.Fatalf("temporary device kept")
	}
	if !conn.closed {
		t.Fatalf("link not closed")
	}
	if len(ta.watches) != 0 || len(ta.bus.watches) != 0 {
		t.Fatalf("watches left: %d/%d", len(ta.watches), len(ta.bus.watches))
	}
	if c.Replied() {
		t.Fatalf("reply sent to a caller that left")
	}
}

func TestSingleBonding(t *testing.T) {
	ta := startTestAdapter(t)

	ta.call(":1.2", func(c *Call) { ta.CreatePairedDevice(c, "00:11:22:33:44:55", "", "") })
	c := ta.call(":1.3", func(c *Call) { ta.CreatePairedDevice(c, "00:11:22:33:44:66", "", "") })
	expectError(t, c, "InProgress")

	c = ta.call(":1.2", func(c *Call) { ta.CreatePairedDevice(c, "00:11:22:33:44:55", "", "") })
	expectError(t, c, "InProgress")
}

func TestGetPropertiesNotReady(t *testing.T) {
	ta := newTestAdapter(t)
	expectError(t, ta.call(":1.1", ta.GetProperties), "NotReady")

	if err := ta.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ta.loop.run()
	props := expectOK(t, ta.call(":1.1", ta.GetProperties))[0].(map[string]interface{})
	if props["Address"] != localAddr.String() {
		t.Fatalf("unexpected address %v", props["Address"])
	}
}

func TestDiscoverableTimeoutPersists(t *testing.T) {
	ta := startTestAdapter(t)

	expectOK(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "DiscoverableTimeout", uint32(60)) }))
	props := expectOK(t, ta.call(":1.1", ta.GetProperties))[0].(map[string]interface{})
	if props["DiscoverableTimeout"] != uint32(60) {
		t.Fatalf("expected 60, got %v", props["DiscoverableTimeout"])
	}

	ta.Stop()
	if ta.IsUp() {
		t.Fatalf("still up")
	}
	if err := ta.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	props = expectOK(t, ta.call(":1.1", ta.GetProperties))[0].(map[string]interface{})
	if props["DiscoverableTimeout"] != uint32(60) {
		t.Fatalf("expected 60 after restart, got %v", props["DiscoverableTimeout"])
	}
}

func TestDiscoverableTimeoutExpires(t *testing.T) {
	ta := startTestAdapter(t)
	expectOK(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "DiscoverableTimeout", uint32(30)) }))
	expectOK(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "Mode", "discoverable") }))

	id := ta.discovTimer
	if id == 0 {
		t.Fatalf("timeout not armed")
	}
	ta.loop.fire(id)

	if ta.Mode() != bluez.ModeConnectable {
		t.Fatalf("expected connectable, got %s", ta.Mode())
	}
	w := ta.ctl.last(&cmd.WriteScanEnable{}).(*cmd.WriteScanEnable)
	if w.ScanEnable != bluez.ScanPage {
		t.Fatalf("expected scan 0x02, got 0x%02x", w.ScanEnable)
	}
}

func TestLimitedMode(t *testing.T) {
	ta := startTestAdapter(t)
	expectOK(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "Mode", "limited") }))

	if ta.Mode() != bluez.ModeLimited {
		t.Fatalf("expected limited, got %s", ta.Mode())
	}
	if ta.scanMode != bluez.ScanPage|bluez.ScanInquiry {
		t.Fatalf("limited without both scans: 0x%02x", ta.scanMode)
	}
	iac := ta.ctl.last(&cmd.WriteCurrentIACLAP{}).(*cmd.WriteCurrentIACLAP)
	if len(iac.IACLAP) != 2 {
		t.Fatalf("expected GIAC and LIAC, got %d", len(iac.IACLAP))
	}
	if ta.class&classLimited == 0 {
		t.Fatalf("limited bit not set in class")
	}

	expectOK(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "Mode", "connectable") }))
	if ta.class&classLimited != 0 {
		t.Fatalf("limited bit left in class")
	}
}

func TestModeOffDevDown(t *testing.T) {
	ta := startTestAdapter(t, bluez.OptOffMode("devdown"))
	expectOK(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "Mode", "off") }))
	if ta.ctl.downs != 1 {
		t.Fatalf("device not brought down")
	}

	ta = startTestAdapter(t)
	expectOK(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "Mode", "off") }))
	if ta.ctl.downs != 0 {
		t.Fatalf("device brought down with noscan")
	}
	w := ta.ctl.last(&cmd.WriteScanEnable{}).(*cmd.WriteScanEnable)
	if w.ScanEnable != bluez.ScanDisabled {
		t.Fatalf("expected scan disabled, got 0x%02x", w.ScanEnable)
	}
}

func TestSetPropertyErrors(t *testing.T) {
	ta := startTestAdapter(t)

	expectError(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "Mode", "sideways") }), "InvalidArguments")
	expectError(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "Mode", 3) }), "InvalidArguments")
	expectError(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "DiscoverableTimeout", "60") }), "InvalidArguments")
	expectError(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "Name", "\xff\xfe") }), "InvalidArguments")
	expectError(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "Color", "blue") }), "InvalidArguments")
}

func TestSetName(t *testing.T) {
	ta := startTestAdapter(t)
	expectOK(t, ta.call(":1.1", func(c *Call) { ta.SetProperty(c, "Name", "dinovo") }))

	w := ta.ctl.last(&cmd.WriteLocalName{}).(*cmd.WriteLocalName)
	if cmd.NameString(w.LocalName[:]) != "dinovo" {
		t.Fatalf("wrong name written: %q", cmd.NameString(w.LocalName[:]))
	}
	if v, ok := ta.bus.property("Name"); !ok || v != "dinovo" {
		t.Fatalf("expected Name signal, got %v", v)
	}
	if s, ok, _ := ta.store.ReadConfig(storage.KeyName); !ok || s != "dinovo" {
		t.Fatalf("name not persisted: %q", s)
	}
}

func TestDevices(t *testing.T) {
	ta := startTestAdapter(t)

	vals := expectOK(t, ta.call(":1.1", func(c *Call) { ta.CreateDevice(c, "00:11:22:33:44:55") }))
	path := vals[0].(ObjectPath)
	if path != "/org/bluez/hci0/dev_00_11_22_33_44_55" {
		t.Fatalf("unexpected path %s", path)
	}
	if ta.bus.count("DeviceCreated") != 1 {
		t.Fatalf("DeviceCreated not emitted")
	}

	expectError(t, ta.call(":1.1", func(c *Call) { ta.CreateDevice(c, "00:11:22:33:44:55") }), "AlreadyExists")
	expectError(t, ta.call(":1.1", func(c *Call) { ta.CreateDevice(c, "bogus") }), "InvalidArguments")

	list := expectOK(t, ta.call(":1.1", ta.ListDevices))[0].([]ObjectPath)
	if len(list) != 1 || list[0] != path {
		t.Fatalf("unexpected list %v", list)
	}
	found := expectOK(t, ta.call(":1.1", func(c *Call) { ta.FindDevice(c, "00:11:22:33:44:55") }))
	if found[0] != path {
		t.Fatalf("FindDevice returned %v", found[0])
	}

	expectOK(t, ta.call(":1.1", func(c *Call) { ta.RemoveDevice(c, path) }))
	if ta.bus.count("DeviceRemoved") != 1 {
		t.Fatalf("DeviceRemoved not emitted")
	}
	expectError(t, ta.call(":1.1", func(c *Call) { ta.FindDevice(c, "00:11:22:33:44:55") }), "DoesNotExist")
	expectError(t, ta.call(":1.1", func(c *Call) { ta.RemoveDevice(c, path) }), "DoesNotExist")
}

func TestRemoveDeviceDisconnects(t *testing.T) {
	ta := startTestAdapter(t)
	path := expectOK(t, ta.call(":1.1", func(c *Call) { ta.CreateDevice(c, "00:11:22:33:44:55") }))[0].(ObjectPath)
	ta.event(evt.ConnectionCompleteCode, connectionComplete(0, 0x0040, remoteAddr))

	expectOK(t, ta.call(":1.1", func(c *Call) { ta.RemoveDevice(c, path) }))
	d, ok := ta.ctl.last(&cmd.Disconnect{}).(*cmd.Disconnect)
	if !ok || d.ConnectionHandle != 0x0040 || d.Reason != 0x13 {
		t.Fatalf("unexpected disconnect %+v", d)
	}
	if ta.ctl.count(&cmd.DeleteStoredLinkKey{}) != 1 {
		t.Fatalf("controller link key not deleted")
	}
}

func TestAgentRegistration(t *testing.T) {
	ta := startTestAdapter(t)
	ag := ta.registerAgent(t, ":1.1")

	c := ta.call(":1.2", func(c *Call) { ta.RegisterAgent(c, "/other", "") })
	expectError(t, c, "AlreadyExists")

	c = ta.call(":1.2", func(c *Call) { ta.UnregisterAgent(c, "/agent") })
	expectError(t, c, "DoesNotExist")

	expectOK(t, ta.call(":1.1", func(c *Call) { ta.UnregisterAgent(c, "/agent") }))
	if !ag.released {
		t.Fatalf("agent not released")
	}

	c = ta.call(":1.1", func(c *Call) { ta.RegisterAgent(c, "/agent", "Telepathy") })
	expectError(t, c, "InvalidArguments")

	ta.registerAgent(t, ":1.4")
	ta.bus.drop(":1.4")
	ta.loop.run()
	if ta.agent != nil {
		t.Fatalf("agent kept after its owner left")
	}
}

func TestServiceRecords(t *testing.T) {
	ta := startTestAdapter(t)

	vals := expectOK(t, ta.call(":1.1", func(c *Call) { ta.AddServiceRecord(c, "<record/>") }))
	h := vals[0].(uint32)
	expectOK(t, ta.call(":1.1", func(c *Call) { ta.UpdateServiceRecord(c, h, "<record/>") }))
	expectError(t, ta.call(":1.2", func(c *Call) { ta.RemoveServiceRecord(c, h) }), "NotAvailable")

	ta.bus.drop(":1.1")
	ta.loop.run()
	if len(ta.recs.owners) != 0 {
		t.Fatalf("records of a departed owner kept")
	}
	if len(ta.recordOwners) != 0 {
		t.Fatalf("owner watch kept")
	}
}
