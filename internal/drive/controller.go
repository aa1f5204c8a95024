// Package drive implements the closed-loop drive controller: wheel-speed
// and steering state estimation, curvature tracking against a racing
// line, and the dual yaw-rate/velocity PI loops that produce throttle and
// steering commands.
package drive

import (
	"fmt"
	"io"
	"math"

	"github.com/san-kum/drivelab/internal/config"
	"github.com/san-kum/drivelab/internal/telemetry"
	"github.com/san-kum/drivelab/internal/track"
)

// LostCurvature is commanded when no usable track geometry is available:
// circle right until the line is reacquired.
const LostCurvature = 2.0

// geomEps clamps the two geometric denominators (1 - k*ye in the tracking
// law, cos(delta) in the slip target) so degenerate geometry saturates the
// command instead of injecting Inf into it.
const geomEps = 1e-3

// Path answers nearest-point queries against the racing line. A nil Path
// is allowed; every lookup then fails and the fallback curvature applies.
type Path interface {
	GetTarget(x, y float64) (track.Target, bool)
}

// motorMode is the active longitudinal control law. The motor's driven
// and braking dynamics differ (torque vs. back-EMF), so one linear law
// cannot cover the full command range.
type motorMode int

const (
	modeDriving motorMode = iota
	modeBraking
)

// Controller holds the per-session control state. It is driven by one
// caller at a fixed cycle period and is not safe for concurrent use.
type Controller struct {
	cal  config.Calibration
	path Path

	// Trace, when set, receives one line per slip-target substitution.
	Trace io.Writer

	// pose in track coordinates, set each cycle by the localizer
	x, y, theta float64

	vf, vr float64 // filtered front/rear wheel speed, m/s
	w      float64 // yaw rate, rad/s
	delta  float64 // estimated steering angle, rad

	ierrV, ierrW float64 // PI integrator states

	// last cycle's scalars, kept for datalogging
	targetK, targetV, targetW float64
	ye, psie, k               float64
	bwW, bwV                  float64
}

// New constructs a controller with the given calibration. path may be nil
// when no racing line is loaded; the controller then runs the fallback
// curvature law until one is supplied.
func New(cal config.Calibration, path Path) *Controller {
	c := &Controller{cal: cal, path: path}
	c.ResetState()
	return c
}

// SetPath swaps the racing line, e.g. after a late track load.
func (c *Controller) SetPath(path Path) { c.path = path }

// ResetState zeroes the speed estimates, yaw rate, and both integrators.
// The pose is external state and is left alone.
func (c *Controller) ResetState() {
	c.vf, c.vr = 0, 0
	c.w = 0
	c.ierrV = 0
	c.ierrW = 0
}

// SetPose feeds the externally maintained pose estimate for this cycle.
func (c *Controller) SetPose(x, y, theta float64) {
	c.x, c.y, c.theta = x, y, theta
}

// Pose returns the last pose fed via SetPose.
func (c *Controller) Pose() (x, y, theta float64) {
	return c.x, c.y, c.theta
}

// Speeds returns the filtered front and rear wheel speed estimates.
func (c *Controller) Speeds() (vf, vr float64) {
	return c.vf, c.vr
}

func clip(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

// UpdateState ingests one cycle's raw sensor sample: accelerometer and
// gyro (unused axes kept for the logging path), servo position byte,
// and per-wheel encoder tick deltas [FL FR RL RR]. Each delta may span
// the full uint16 range; the axle sums are formed in float64 so a pair
// of large deltas cannot wrap. dt must be positive; dt=0 is a caller
// contract violation.
func (c *Controller) UpdateState(cfg *config.DriverConfig, accel, gyro [3]float64,
	servoPos uint8, wheelDelta [4]uint16, dt float64) {
	_ = cfg
	_ = accel

	c.delta = (float64(servoPos) - c.cal.ServoCenter) / c.cal.ServoScale

	// exponential moving average per axle rejects encoder quantization
	// noise while tracking speed changes within a few time constants
	alpha := c.cal.VAlpha
	c.vf *= 1 - alpha
	c.vf += alpha * c.cal.VScale * 0.5 * (float64(wheelDelta[0]) + float64(wheelDelta[1])) / dt
	c.vr *= 1 - alpha
	c.vr += alpha * c.cal.VScale * 0.5 * (float64(wheelDelta[2]) + float64(wheelDelta[3])) / dt

	c.w = gyro[2]
}

// TargetCurvature runs the lateral tracking law against the racing line
// and returns the curvature command. On lookup failure it returns
// LostCurvature. The lateral telemetry fields are updated on every call,
// manual driving included, so tuning data is available either way.
func (c *Controller) TargetCurvature(cfg *config.DriverConfig) float64 {
	var tgt track.Target
	ok := false
	if c.path != nil {
		tgt, ok = c.path.GetTarget(c.x, c.y)
	}
	if !ok {
		c.targetK = LostCurvature
		return LostCurvature
	}

	// signed cross-track error along the left normal
	ye := (c.x-tgt.CX)*tgt.NX + (c.y-tgt.CY)*tgt.NY

	cosT, sinT := math.Cos(c.theta), math.Sin(c.theta)

	// the car's own y axis is (-sin, cos); project against the normal
	// to get cos/sin of the heading error
	cp := -sinT*tgt.NX + cosT*tgt.NY
	sp := sinT*tgt.NY + cosT*tgt.NX

	// arclength rate correction for lateral offset on a curved path;
	// singular as k*ye -> 1, so the denominator is clamped
	denom := 1 - tgt.K*ye
	if math.Abs(denom) < geomEps {
		denom = math.Copysign(geomEps, denom)
	}
	cpy := cp / denom

	kpy := float64(cfg.SteeringKpy) * 0.01
	kvy := float64(cfg.SteeringKvy) * 0.01
	targetK := cpy * (ye*cpy*(-kpy*cp) + sp*(tgt.K*sp-kvy*cp) + tgt.K)

	c.ye = ye
	c.psie = math.Atan2(sp, cp)
	c.k = tgt.K
	c.targetK = targetK

	return targetK
}

// GetControl computes one cycle's throttle and steering commands.
// throttleIn/steeringIn are the driver's stick inputs in [-1, 1]; under
// autodrive the curvature and speed targets come from the tracking law
// and the configured limits instead.
func (c *Controller) GetControl(cfg *config.DriverConfig, throttleIn, steeringIn,
	dt float64, autodrive bool, frame int) (throttleOut, steeringOut float64) {

	// always run the tracking law so its telemetry stays live
	autok := c.TargetCurvature(cfg)

	// braking or coasting under manual control bypasses the loops
	// entirely; the driver has direct intent and integrator state
	// would only fight the next engagement
	if !autodrive && throttleIn <= 0 {
		c.ierrV = 0
		c.ierrW = 0
		return throttleIn, -steeringIn // yaw is backwards
	}

	// quadratic stick shaping: fine control near center, full-scale
	// curvature (1m radius at k=2) at the extremes
	k := -steeringIn * 2 * math.Abs(steeringIn)
	vmax := throttleIn * float64(cfg.SpeedLimit) * 0.01
	if autodrive {
		k = autok
		vmax = float64(cfg.SpeedLimit) * 0.01
	}

	traction := float64(cfg.TractionLimit) * 0.01
	kmin := traction / (vmax * vmax)

	targetV := vmax
	if math.Abs(k) > kmin {
		// back off to the speed this curvature allows within the
		// lateral acceleration budget
		targetV = math.Sqrt(traction / math.Abs(k))

		// hold zero lateral slip at the current steering angle:
		// vr = (vf + w*LF*sin(delta)) / cos(delta)
		cosD := math.Cos(c.delta)
		if math.Abs(cosD) < geomEps {
			cosD = math.Copysign(geomEps, cosD)
		}
		vrSlip := (c.vf + c.w*c.cal.LF*math.Sin(c.delta)) / cosD
		if vrSlip < targetV && vrSlip > 1.0 {
			if c.Trace != nil {
				fmt.Fprintf(c.Trace, "[%d] using slip target %f (vf=%f vr=%f)\n",
					frame, vrSlip, c.vf, c.vr)
			}
			targetV = vrSlip
		}
	}

	// yaw rate the commanded curvature implies at the speed we actually
	// have, not the speed we want; the yaw loop tracks achievable dynamics
	targetW := k * c.vr

	errV := c.vr - targetV
	errW := c.w - targetW

	bwW := 2 * math.Pi * 0.01 * float64(cfg.YawBW)
	steeringOut = clip(-bwW*(c.ierrW+errW/c.cal.ServoBW), -1, 1)

	bwV := 2 * math.Pi * 0.01 * float64(cfg.MotorBW)
	throttleOut, _ = c.motorControl(bwV, errV)

	// anti-windup: integrate only while the actuator can still respond
	if throttleOut > -1 && throttleOut < 1 {
		c.ierrV += dt * errV
	}
	// the yaw integrator additionally unwinds while saturated whenever
	// the error opposes it, instead of freezing until desaturation
	if (steeringOut > -1 && steeringOut < 1) ||
		(errW > 0 && c.ierrW < 0) || (errW < 0 && c.ierrW > 0) {
		c.ierrW += dt * errW
	}

	c.targetV = targetV
	c.targetW = targetW
	c.bwW = bwW
	c.bwV = bwV

	return throttleOut, steeringOut
}

// motorControl runs the longitudinal law and reports which mode produced
// the command. The proportional gain is re-derived from the current rear
// speed each cycle because the DC motor's gain is speed dependent.
func (c *Controller) motorControl(bwV, errV float64) (float64, motorMode) {
	kp := bwV / (c.cal.MotorK1 - c.cal.MotorK2*c.vr)
	ki := c.cal.MotorK3

	u := clip(-kp*(errV+ki*c.ierrV)+c.cal.MotorOffset, 0, 1)
	if u == 0 && c.vr > 0 {
		// driven law clipped to zero while still rolling forward:
		// switch to the braking law (back-EMF dominated, sign-flipped
		// speed-scaled gain)
		kp2 := bwV / (-c.cal.MotorK2 * c.vr)
		return clip(kp2*(errV+ki*c.ierrV-c.cal.MotorOffset), -1, 0), modeBraking
	}
	return u, modeDriving
}

// Snapshot packs the cycle's state into the fixed telemetry record.
func (c *Controller) Snapshot() telemetry.Record {
	return telemetry.Record{
		X:     float32(c.x),
		Y:     float32(c.y),
		Theta: float32(c.theta),
		VF:    float32(c.vf),
		VR:    float32(c.vr),
		W:     float32(c.w),
		IErrV: float32(c.ierrV),
		IErrW: float32(c.ierrW),
		Delta: float32(c.delta),

		TargetK: float32(c.targetK),
		TargetV: float32(c.targetV),
		TargetW: float32(c.targetW),
		YE:      float32(c.ye),
		PsiE:    float32(c.psie),
		K:       float32(c.k),
		BWw:     float32(c.bwW),
		BWv:     float32(c.bwV),
	}
}
