//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation -framework Cocoa
#import <AVFoundation/AVFoundation.h>
#import <Cocoa/Cocoa.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

// Blocks until the user answers the prompt or 60 s pass.
int requestMicrophonePermission() {
    __block BOOL result = NO;
    dispatch_semaphore_t sem = dispatch_semaphore_create(0);
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {
        result = granted;
        dispatch_semaphore_signal(sem);
    }];
    dispatch_semaphore_wait(sem, dispatch_time(DISPATCH_TIME_NOW, 60 * NSEC_PER_SEC));
    return result ? 1 : 0;
}

int checkAccessibilityPermission() {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

// Microphone asks for microphone access if it was never decided and
// reports ErrMicrophoneDenied unless it is granted.
func Microphone() error {
	status := int(C.checkMicrophonePermission())
	if status == PermissionNotDetermined {
		if C.requestMicrophonePermission() == 1 {
			return nil
		}
		status = int(C.checkMicrophonePermission())
		if status == PermissionNotDetermined {
			status = PermissionDenied
		}
	}
	return microphoneError(status)
}

// Accessibility checks the permission global hotkeys need. The system
// prompt is shown as a side effect when it is missing.
func Accessibility() error {
	if C.checkAccessibilityPermission() == 1 {
		return nil
	}
	return ErrAccessibilityDenied
}
