// ABOUTME: Tests for mDNS server discovery
// ABOUTME: Covers manager lifecycle and channel behavior
package discovery

import (
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager()
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	mgr.Stop()
}

func TestServersChannelEmptyBeforeBrowse(t *testing.T) {
	mgr := NewManager()
	defer mgr.Stop()

	select {
	case s := <-mgr.Servers():
		t.Errorf("unexpected server before browsing: %+v", s)
	default:
	}
}

func TestStopEndsBrowse(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping network test in short mode")
	}

	mgr := NewManager()
	mgr.Browse()
	mgr.Stop()

	// Stopped manager must not deliver after cancel settles
	time.Sleep(100 * time.Millisecond)
	select {
	case <-mgr.Servers():
		// A late in-flight discovery is acceptable; drain and move on
	default:
	}
}
