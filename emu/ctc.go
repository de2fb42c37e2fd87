package emu

// CTC control word bits
const (
	ctcCtrlEI          = 1 << 7 // interrupt enable
	ctcCtrlMode        = 1 << 6 // 1: counter, 0: timer
	ctcCtrlPrescaler   = 1 << 5 // 1: 256, 0: 16
	ctcCtrlEdge        = 1 << 4 // 1: rising edge triggers
	ctcCtrlTrigger     = 1 << 3 // timer: 1: wait for CLK/TRG pulse to start
	ctcCtrlConstFollow = 1 << 2 // next write is the time constant
	ctcCtrlReset       = 1 << 1
	ctcCtrlControl     = 1 << 0 // 1: control word, 0: vector
)

type ctcChannel struct {
	control     uint8
	constant    uint16 // time constant, 1..256
	downCounter uint16
	prescaler   uint16
	waitTrigger bool // timer armed, waiting for a CLK/TRG pulse
	trgPrev     bool // previous CLK/TRG level for edge detection
	irq         intCtrl
}

// CTC emulates the Z80-CTC counter/timer with four channels. Channels 0-2
// expose their zero-count/timeout outputs as ZC/TO pins, channel inputs
// arrive on the CLK/TRG pins, and all four channels occupy consecutive
// slots in the interrupt daisy chain.
type CTC struct {
	chn [4]ctcChannel
}

func NewCTC() *CTC {
	c := &CTC{}
	c.Reset()
	return c
}

// Reset puts all channels into their power-on state: interrupts disabled,
// counters stopped, expecting a control word.
func (c *CTC) Reset() {
	for i := range c.chn {
		ch := &c.chn[i]
		ch.control = ctcCtrlReset
		ch.constant = 0x100
		ch.downCounter = 0
		ch.prescaler = 0
		ch.waitTrigger = false
		ch.irq.reset()
	}
}

// Tick advances the CTC one bus cycle. Interrupt-acknowledge and RETI
// cycles only run the daisy chain; any other cycle handles a possible
// register access and then clocks the four channels.
func (c *CTC) Tick(pins uint64) uint64 {
	if pins&(PinM1|PinIORQ) == (PinM1|PinIORQ) || pins&PinRETI != 0 {
		return c.tickDaisy(pins)
	}
	if pins&(PinCE|PinRD) == (PinCE|PinRD) {
		pins = SetData(pins, c.readChannel(ctcChannelSel(pins)))
	} else if pins&(PinCE|PinWR) == (PinCE|PinWR) {
		c.writeChannel(ctcChannelSel(pins), GetData(pins))
	}
	pins = c.tickChannels(pins)
	return c.tickDaisy(pins)
}

func ctcChannelSel(pins uint64) int {
	sel := 0
	if pins&PinCS0 != 0 {
		sel |= 1
	}
	if pins&PinCS1 != 0 {
		sel |= 2
	}
	return sel
}

func (c *CTC) tickDaisy(pins uint64) uint64 {
	for i := range c.chn {
		pins = c.chn[i].irq.tick(pins)
	}
	return pins
}

// readChannel returns the channel's current down counter value.
func (c *CTC) readChannel(sel int) uint8 {
	return uint8(c.chn[sel].downCounter)
}

func (c *CTC) writeChannel(sel int, data uint8) {
	ch := &c.chn[sel]
	switch {
	case ch.control&ctcCtrlConstFollow != 0:
		// second byte of a control sequence: the time constant
		ch.constant = uint16(data)
		if ch.constant == 0 {
			ch.constant = 0x100
		}
		ch.control &^= ctcCtrlConstFollow | ctcCtrlReset
		if ch.control&ctcCtrlMode == 0 && ch.control&ctcCtrlTrigger != 0 {
			ch.waitTrigger = true
		} else {
			c.startChannel(ch)
		}
	case data&ctcCtrlControl != 0:
		ch.control = data
		ch.waitTrigger = false
		if data&ctcCtrlReset != 0 {
			// channel stops until a new time constant arrives
			ch.downCounter = 0
		}
		if data&ctcCtrlEI == 0 {
			ch.irq.reset()
		}
	default:
		// vector write (channel 0 only on real hardware); bits 2-1 of
		// each channel's vector encode the channel number
		if sel == 0 {
			for i := range c.chn {
				c.chn[i].irq.vector = (data & 0xF8) | uint8(i)<<1
			}
		}
	}
}

func (c *CTC) startChannel(ch *ctcChannel) {
	ch.downCounter = ch.constant
	if ch.control&ctcCtrlMode == 0 {
		ch.prescaler = c.prescalerReload(ch)
	}
}

func (c *CTC) prescalerReload(ch *ctcChannel) uint16 {
	if ch.control&ctcCtrlPrescaler != 0 {
		return 256
	}
	return 16
}

// channelZero handles a down counter reaching zero: reload, request an
// interrupt if enabled, and pulse the channel's ZC/TO pin (channels 0-2).
func (c *CTC) channelZero(ch *ctcChannel, sel int, pins uint64) uint64 {
	ch.downCounter = ch.constant
	if ch.control&ctcCtrlEI != 0 {
		ch.irq.request()
	}
	switch sel {
	case 0:
		pins |= PinZCTO0
	case 1:
		pins |= PinZCTO1
	case 2:
		pins |= PinZCTO2
	}
	return pins
}

func (c *CTC) tickChannels(pins uint64) uint64 {
	trg := [4]bool{
		pins&PinCLKTRG0 != 0,
		pins&PinCLKTRG1 != 0,
		pins&PinCLKTRG2 != 0,
		pins&PinCLKTRG3 != 0,
	}
	for i := range c.chn {
		ch := &c.chn[i]
		// CLK/TRG edge detection honors the programmed edge polarity
		edge := false
		if ch.control&ctcCtrlEdge != 0 {
			edge = trg[i] && !ch.trgPrev
		} else {
			edge = !trg[i] && ch.trgPrev
		}
		ch.trgPrev = trg[i]

		if ch.control&ctcCtrlReset != 0 || ch.control&ctcCtrlConstFollow != 0 {
			continue
		}
		if ch.control&ctcCtrlMode != 0 {
			// counter mode: decrement on external trigger edges only
			if edge && ch.downCounter > 0 {
				ch.downCounter--
				if ch.downCounter == 0 {
					pins = c.channelZero(ch, i, pins)
				}
			}
			continue
		}
		// timer mode
		if ch.waitTrigger {
			if !edge {
				continue
			}
			ch.waitTrigger = false
			c.startChannel(ch)
		}
		if ch.downCounter == 0 {
			continue
		}
		ch.prescaler--
		if ch.prescaler == 0 {
			ch.prescaler = c.prescalerReload(ch)
			ch.downCounter--
			if ch.downCounter == 0 {
				pins = c.channelZero(ch, i, pins)
			}
		}
	}
	return pins
}
